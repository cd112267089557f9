package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/predict"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// 掩码修复结果的JPEG压缩质量
const inpaintJPEGQuality = 85

// Pipeline 分割流水线的根组件，持有进程级的模型句柄
type Pipeline struct {
	proposer     predict.Proposer
	background   *BackgroundService
	compositor   *InpaintCompositor
	snapshots    *SnapshotService
	semaphore    chan struct{}
	queueTimeout time.Duration
}

// NewPipeline 构建流水线，模型客户端在进程启动时创建一次
func NewPipeline(cfg *config.SegmentConfig, proposer predict.Proposer, segmenter predict.SemanticSegmenter, inpainter predict.Inpainter, snapshots *SnapshotService) *Pipeline {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pipeline{
		proposer:     proposer,
		background:   NewBackgroundService(segmenter),
		compositor:   NewInpaintCompositor(inpainter),
		snapshots:    snapshots,
		semaphore:    make(chan struct{}, maxConcurrent),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
	}
}

// Process 执行一次完整的分割请求：
// 解码 → 候选推理 → 背景分类 → 过滤 → 修复 → 组装响应
func (p *Pipeline) Process(ctx context.Context, imageB64, requestID string, opts *SegmentOptions) (*model.SegmentResponse, error) {
	queueCtx, cancel := context.WithTimeout(ctx, p.queueTimeout)
	defer cancel()

	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("处理队列已满，请稍后重试")
	}

	startTime := time.Now()

	imageBytes, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	img, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("failed to decode image")
	}
	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	utils.Logger.Info("processing image",
		zap.String("request_id", requestID),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("conf", opts.Conf),
		zap.Float64("iou", opts.IoU),
		zap.String("exclude_background", opts.ExcludeBackground),
		zap.Bool("combined_inpaint", opts.CombinedInpaint))

	proposals, err := p.proposer.Propose(ctx, imageBytes, opts.Conf, opts.IoU)
	if err != nil {
		return nil, fmt.Errorf("proposal inference failed: %w", err)
	}
	defer predict.CloseProposals(proposals)

	// 背景分类只在semantic模式下执行，heuristic暂未实现、等同于不过滤
	var backgroundMask *gocv.Mat
	if opts.ExcludeBackground == ExcludeSemantic {
		bg, labels, err := p.background.ClassifyBackground(ctx, imageBytes)
		if err != nil {
			return nil, fmt.Errorf("background classification failed: %w", err)
		}
		labels.Close()
		defer bg.Close()
		backgroundMask = &bg
	} else if opts.ExcludeBackground == ExcludeHeuristic {
		utils.Logger.Warn("heuristic background filter not implemented, keeping all masks")
	}

	filtered := FilterMasks(proposals, opts, backgroundMask)
	defer CloseFilteredMasks(filtered)

	var combinedData string
	var inpainted *gocv.Mat
	if opts.CombinedInpaint && len(filtered) > 0 {
		result, err := p.compositor.CombinedInpaint(ctx, img, filtered, opts.DilatePixels, opts.InpaintScale)
		if err != nil {
			// 整图修复失败只丢弃该产物，掩码响应照常返回
			utils.Logger.Warn("combined inpainting failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		} else {
			defer result.Close()
			inpainted = &result
			combinedData, err = encodeJPEG(result, inpaintJPEGQuality)
			if err != nil {
				utils.Logger.Warn("failed to encode combined inpaint result", zap.Error(err))
				combinedData = ""
			}
		}
	}

	payloads, err := p.assemble(ctx, img, filtered, opts)
	if err != nil {
		return nil, err
	}

	resp := &model.SegmentResponse{
		Success:             true,
		Count:               len(payloads),
		Masks:               payloads,
		ProcessingTime:      time.Since(startTime).Seconds(),
		ImageSize:           []int{width, height},
		CombinedInpaintData: combinedData,
	}

	utils.Logger.Info("request processed",
		zap.String("request_id", requestID),
		zap.Int("masks", len(payloads)),
		zap.Duration("duration", time.Since(startTime)))

	// 调试快照在响应后异步保存，失败不影响请求
	if p.snapshots != nil && p.snapshots.Enabled() {
		p.snapshots.SaveAsync(buildSnapshot(requestID, img, proposals, filtered, inpainted, backgroundMask))
	}

	return resp, nil
}

// assemble 为每个过滤后的掩码构建响应载荷，顺序与过滤输出一致
func (p *Pipeline) assemble(ctx context.Context, img gocv.Mat, filtered []FilteredMask, opts *SegmentOptions) ([]model.MaskPayload, error) {
	width := img.Cols()
	height := img.Rows()

	payloads := make([]model.MaskPayload, 0, len(filtered))
	for i := range filtered {
		fm := &filtered[i]

		fullMask := ResizeMask(fm.Mask, width, height)

		var cropped gocv.Mat
		cropWidth := width
		cropHeight := height
		if fm.Box != nil {
			box := ClampBBox(fm.Box, width, height)
			rect := image.Rect(box[0], box[1], box[2], box[3])
			if rect.Dx() > 0 && rect.Dy() > 0 {
				cropped = CropRegion(fullMask, rect)
				cropWidth = rect.Dx()
				cropHeight = rect.Dy()
				fullMask.Close()
			} else {
				cropped = fullMask
			}
		} else {
			cropped = fullMask
		}

		maskData, err := encodePNG(cropped)
		cropped.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to encode mask %d: %w", fm.ID, err)
		}

		payload := model.MaskPayload{
			ID:     fm.ID,
			Data:   maskData,
			Width:  cropWidth,
			Height: cropHeight,
			BBox:   fm.Box,
			Color:  GenerateDistinctColor(fm.ID),
		}

		// 单掩码修复模式，失败只影响当前掩码
		if !opts.CombinedInpaint && fm.Box != nil {
			crop, box, err := p.compositor.InpaintMask(ctx, img, fm, opts.DilatePixels)
			if err != nil {
				utils.Logger.Warn("inpainting failed for mask",
					zap.Int("mask_id", fm.ID),
					zap.Error(err))
			} else {
				data, encErr := encodeJPEG(crop, inpaintJPEGQuality)
				crop.Close()
				if encErr != nil {
					utils.Logger.Warn("failed to encode inpaint crop",
						zap.Int("mask_id", fm.ID),
						zap.Error(encErr))
				} else {
					payload.InpaintData = data
					payload.InpaintBBox = box
				}
			}
		}

		payloads = append(payloads, payload)
	}

	return payloads, nil
}

// StreamMasks 低保真流式模式：只做候选推理并返回模型分辨率的掩码图
func (p *Pipeline) StreamMasks(ctx context.Context, imageB64 string, conf, iou float64, maxMasks int) (*model.StreamResponse, error) {
	startTime := time.Now()

	imageBytes, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	img, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("failed to decode image")
	}
	width := img.Cols()
	height := img.Rows()
	img.Close()

	proposals, err := p.proposer.Propose(ctx, imageBytes, conf, iou)
	if err != nil {
		return nil, fmt.Errorf("proposal inference failed: %w", err)
	}
	defer predict.CloseProposals(proposals)

	total := len(proposals)
	if total == 0 {
		return &model.StreamResponse{
			Success: true,
			Count:   0,
			Masks:   []model.StreamMask{},
			Message: "No segments detected",
		}, nil
	}

	limit := total
	if maxMasks < limit {
		limit = maxMasks
	}

	masks := make([]model.StreamMask, 0, limit)
	for i := 0; i < limit; i++ {
		binary := BinarizeMask(proposals[i].Mask)
		data, err := encodePNG(binary)
		binary.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to encode mask %d: %w", i, err)
		}
		masks = append(masks, model.StreamMask{
			ID:     i,
			Data:   data,
			Width:  proposals[i].Mask.Cols(),
			Height: proposals[i].Mask.Rows(),
		})
	}

	return &model.StreamResponse{
		Success:        true,
		Count:          total,
		Masks:          masks,
		ProcessingTime: time.Since(startTime).Seconds(),
		ImageSize:      []int{width, height},
	}, nil
}

// encodePNG 将Mat无损压缩为base64 PNG
func encodePNG(m gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return "", err
	}
	defer buf.Close()
	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}

// encodeJPEG 将Mat压缩为base64 JPEG
func encodeJPEG(m gocv.Mat, quality int) (string, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return "", err
	}
	defer buf.Close()
	return base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
