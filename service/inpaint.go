package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/TIANLI0/MaskKit/predict"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// 单掩码修复时边界框的扩展比例
const inpaintPaddingRatio = 0.15

// InpaintCompositor 负责构建移除掩码并调用修复模型
type InpaintCompositor struct {
	inpainter predict.Inpainter
}

func NewInpaintCompositor(inpainter predict.Inpainter) *InpaintCompositor {
	return &InpaintCompositor{inpainter: inpainter}
}

// CombinedInpaint 合并所有掩码做一次整图修复。
// scale小于1时图像用区域插值缩小、掩码用最近邻缩小以加速，结果再放大回原尺寸。
func (c *InpaintCompositor) CombinedInpaint(ctx context.Context, img gocv.Mat, masks []FilteredMask, dilatePixels int, scale float64) (gocv.Mat, error) {
	if len(masks) == 0 {
		return gocv.Mat{}, fmt.Errorf("no masks to inpaint")
	}

	width := img.Cols()
	height := img.Rows()

	// 在模型分辨率下合并掩码
	combined := gocv.Zeros(masks[0].Mask.Rows(), masks[0].Mask.Cols(), gocv.MatTypeCV8U)
	for i := range masks {
		gocv.BitwiseOr(combined, masks[i].Mask, &combined)
	}

	dilated := DilateMask(combined, dilatePixels)
	combined.Close()

	fullMask := ResizeMask(dilated, width, height)
	dilated.Close()
	defer fullMask.Close()

	workImg := img
	workMask := fullMask
	if scale < 1.0 {
		scaledW := int(float64(width) * scale)
		scaledH := int(float64(height) * scale)

		scaledImg := gocv.NewMat()
		gocv.Resize(img, &scaledImg, image.Pt(scaledW, scaledH), 0, 0, gocv.InterpolationArea)
		defer scaledImg.Close()

		scaledMask := ResizeMask(fullMask, scaledW, scaledH)
		defer scaledMask.Close()

		workImg = scaledImg
		workMask = scaledMask

		utils.Logger.Info("inpainting at reduced scale",
			zap.Float64("scale", scale),
			zap.Int("width", scaledW),
			zap.Int("height", scaledH))
	}

	start := time.Now()
	result, err := c.inpainter.Inpaint(ctx, workImg, workMask)
	if err != nil {
		return gocv.Mat{}, err
	}
	utils.Logger.Info("combined inpainting done",
		zap.Duration("duration", time.Since(start)))

	if scale < 1.0 {
		full := gocv.NewMat()
		gocv.Resize(result, &full, image.Pt(width, height), 0, 0, gocv.InterpolationLanczos4)
		result.Close()
		return full, nil
	}
	return result, nil
}

// InpaintMask 修复单个掩码区域，返回按扩展边界框裁剪的结果
func (c *InpaintCompositor) InpaintMask(ctx context.Context, img gocv.Mat, fm *FilteredMask, dilatePixels int) (gocv.Mat, []int, error) {
	width := img.Cols()
	height := img.Rows()

	dilated := DilateMask(fm.Mask, dilatePixels)
	fullMask := ResizeMask(dilated, width, height)
	dilated.Close()
	defer fullMask.Close()

	result, err := c.inpainter.Inpaint(ctx, img, fullMask)
	if err != nil {
		return gocv.Mat{}, nil, err
	}
	defer result.Close()

	box := ExpandBBox(fm.Box, width, height, inpaintPaddingRatio)
	rect := image.Rect(box[0], box[1], box[2], box[3])
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return gocv.Mat{}, nil, fmt.Errorf("degenerate inpaint crop region")
	}

	crop := CropRegion(result, rect)
	return crop, box, nil
}
