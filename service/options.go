package service

import (
	"fmt"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
)

// 背景排除模式
const (
	ExcludeNone      = "none"
	ExcludeSemantic  = "semantic"
	ExcludeHeuristic = "heuristic"
)

// SegmentOptions 单次请求的处理参数，入口处解析校验后不再修改
type SegmentOptions struct {
	Conf                       float64
	IoU                        float64
	MaxMasks                   int
	MinArea                    float64
	CombinedInpaint            bool
	DilatePixels               int
	InpaintScale               float64
	ExcludeBackground          string
	BackgroundOverlapThreshold float64
}

// ResolveOptions 合并请求参数与服务端默认值并校验
func ResolveOptions(req *model.SegmentRequest, def *config.SegmentConfig) (*SegmentOptions, error) {
	opts := &SegmentOptions{
		Conf:                       def.Conf,
		IoU:                        def.IoU,
		MaxMasks:                   def.MaxMasks,
		MinArea:                    def.MinArea,
		CombinedInpaint:            def.CombinedInpaint,
		DilatePixels:               def.DilatePixels,
		InpaintScale:               def.InpaintScale,
		ExcludeBackground:          def.ExcludeBackground,
		BackgroundOverlapThreshold: def.BackgroundOverlapThreshold,
	}

	if req.Conf != nil {
		opts.Conf = *req.Conf
	}
	if req.IoU != nil {
		opts.IoU = *req.IoU
	}
	if req.MaxMasks != nil {
		opts.MaxMasks = *req.MaxMasks
	}
	if req.MinArea != nil {
		opts.MinArea = *req.MinArea
	}
	if req.CombinedInpaint != nil {
		opts.CombinedInpaint = *req.CombinedInpaint
	}
	if req.DilatePixels != nil {
		opts.DilatePixels = *req.DilatePixels
	}
	if req.InpaintScale != nil {
		opts.InpaintScale = *req.InpaintScale
	}
	if req.ExcludeBackground != nil {
		opts.ExcludeBackground = *req.ExcludeBackground
	}
	if req.BackgroundOverlapThreshold != nil {
		opts.BackgroundOverlapThreshold = *req.BackgroundOverlapThreshold
	}

	// 修复缩放限制在[0.25, 1.0]
	if opts.InpaintScale < 0.25 {
		opts.InpaintScale = 0.25
	}
	if opts.InpaintScale > 1.0 {
		opts.InpaintScale = 1.0
	}

	switch opts.ExcludeBackground {
	case ExcludeNone, ExcludeSemantic, ExcludeHeuristic:
	default:
		return nil, fmt.Errorf("unsupported exclude_background mode: %q", opts.ExcludeBackground)
	}

	if opts.MaxMasks < 0 {
		return nil, fmt.Errorf("max_masks must be non-negative")
	}

	return opts, nil
}

// Digest 参数摘要，用于缓存键
func (o *SegmentOptions) Digest() string {
	return fmt.Sprintf("%.4f:%.4f:%d:%.6f:%t:%d:%.4f:%s:%.4f",
		o.Conf, o.IoU, o.MaxMasks, o.MinArea, o.CombinedInpaint,
		o.DilatePixels, o.InpaintScale, o.ExcludeBackground,
		o.BackgroundOverlapThreshold)
}
