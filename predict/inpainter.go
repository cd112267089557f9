package predict

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"gocv.io/x/gocv"
)

// LaMaClient 通过HTTP调用LaMa图像修复服务
type LaMaClient struct {
	cli *resty.Client
}

func NewLaMaClient(baseURL string, timeout time.Duration) *LaMaClient {
	return &LaMaClient{
		cli: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

type inpaintRequest struct {
	Image string `json:"image"` // base64编码的PNG
	Mask  string `json:"mask"`  // base64编码的PNG，非零像素为修复区域
}

type inpaintResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Error   string `json:"error"`
}

func (c *LaMaClient) Inpaint(ctx context.Context, image, mask gocv.Mat) (gocv.Mat, error) {
	imgBuf, err := gocv.IMEncode(gocv.PNGFileExt, image)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to encode image: %w", err)
	}
	defer imgBuf.Close()

	maskBuf, err := gocv.IMEncode(gocv.PNGFileExt, mask)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to encode mask: %w", err)
	}
	defer maskBuf.Close()

	var out inpaintResponse
	resp, err := c.cli.R().
		SetContext(ctx).
		SetBody(&inpaintRequest{
			Image: base64.StdEncoding.EncodeToString(imgBuf.GetBytes()),
			Mask:  base64.StdEncoding.EncodeToString(maskBuf.GetBytes()),
		}).
		SetResult(&out).
		Post("/inpaint")
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("inpainter request failed: %w", err)
	}
	if resp.IsError() {
		return gocv.Mat{}, fmt.Errorf("inpainter returned status %d", resp.StatusCode())
	}
	if !out.Success {
		return gocv.Mat{}, fmt.Errorf("inpainter failed: %s", out.Error)
	}

	data, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode inpaint result: %w", err)
	}
	result, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode inpaint result: %w", err)
	}
	if result.Empty() {
		result.Close()
		return gocv.Mat{}, fmt.Errorf("inpaint result is empty")
	}
	return result, nil
}
