package predict

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"gocv.io/x/gocv"
)

// SegFormerClient 通过HTTP调用SegFormer语义分割服务
type SegFormerClient struct {
	cli *resty.Client
}

func NewSegFormerClient(baseURL string, timeout time.Duration) *SegFormerClient {
	return &SegFormerClient{
		cli: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

type semanticRequest struct {
	Image string `json:"image"`
}

type semanticResponse struct {
	Success bool   `json:"success"`
	Labels  string `json:"labels"` // base64编码的8位灰度PNG，像素值为类别ID
	Error   string `json:"error"`
}

func (c *SegFormerClient) Segment(ctx context.Context, image []byte) (gocv.Mat, error) {
	var out semanticResponse
	resp, err := c.cli.R().
		SetContext(ctx).
		SetBody(&semanticRequest{Image: base64.StdEncoding.EncodeToString(image)}).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("segmenter request failed: %w", err)
	}
	if resp.IsError() {
		return gocv.Mat{}, fmt.Errorf("segmenter returned status %d", resp.StatusCode())
	}
	if !out.Success {
		return gocv.Mat{}, fmt.Errorf("segmenter failed: %s", out.Error)
	}

	labels, err := decodeGrayMask(out.Labels)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode label map: %w", err)
	}
	return labels, nil
}
