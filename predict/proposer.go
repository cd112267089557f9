package predict

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"gocv.io/x/gocv"
)

// FastSAMClient 通过HTTP调用FastSAM模型服务
type FastSAMClient struct {
	cli *resty.Client
}

func NewFastSAMClient(baseURL string, timeout time.Duration) *FastSAMClient {
	return &FastSAMClient{
		cli: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

type proposeRequest struct {
	Image string  `json:"image"`
	Conf  float64 `json:"conf"`
	IoU   float64 `json:"iou"`
}

type proposeResponse struct {
	Success bool        `json:"success"`
	Masks   []string    `json:"masks"` // base64编码的8位灰度PNG概率图
	Boxes   [][]float64 `json:"boxes"` // [x1, y1, x2, y2]，与masks对齐，可能较短
	Error   string      `json:"error"`
}

func (c *FastSAMClient) Propose(ctx context.Context, image []byte, conf, iou float64) ([]Proposal, error) {
	var out proposeResponse
	resp, err := c.cli.R().
		SetContext(ctx).
		SetBody(&proposeRequest{
			Image: base64.StdEncoding.EncodeToString(image),
			Conf:  conf,
			IoU:   iou,
		}).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("proposer request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("proposer returned status %d", resp.StatusCode())
	}
	if !out.Success {
		return nil, fmt.Errorf("proposer failed: %s", out.Error)
	}

	proposals := make([]Proposal, 0, len(out.Masks))
	for i, encoded := range out.Masks {
		mask, err := decodeGrayMask(encoded)
		if err != nil {
			CloseProposals(proposals)
			return nil, fmt.Errorf("failed to decode proposal mask %d: %w", i, err)
		}
		p := Proposal{Mask: mask}
		if i < len(out.Boxes) && len(out.Boxes[i]) == 4 {
			p.Box = out.Boxes[i]
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// decodeGrayMask 解码base64 PNG为单通道灰度Mat
func decodeGrayMask(encoded string) (gocv.Mat, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return gocv.Mat{}, err
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return gocv.Mat{}, err
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("decoded mask is empty")
	}
	return mat, nil
}
