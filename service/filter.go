package service

import (
	"github.com/TIANLI0/MaskKit/predict"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FilteredMask 通过过滤的掩码，ID按原始顺序连续分配
type FilteredMask struct {
	OriginalIndex int
	ID            int
	Mask          gocv.Mat // 二值掩码（0/255），模型分辨率
	Box           []float64
}

func (f *FilteredMask) Close() {
	if !f.Mask.Empty() {
		f.Mask.Close()
	}
}

// CloseFilteredMasks 释放所有过滤结果
func CloseFilteredMasks(masks []FilteredMask) {
	for i := range masks {
		masks[i].Close()
	}
}

// FilterMasks 对候选掩码依次做背景排除和最小面积过滤。
// background为nil时跳过背景排除；面积按模型分辨率计算。
func FilterMasks(proposals []predict.Proposal, opts *SegmentOptions, background *gocv.Mat) []FilteredMask {
	filtered := make([]FilteredMask, 0, len(proposals))
	if len(proposals) == 0 {
		return filtered
	}

	limit := len(proposals)
	if opts.MaxMasks < limit {
		limit = opts.MaxMasks
	}

	maskID := 0
	skipped := 0
	for i := 0; i < limit; i++ {
		binary := BinarizeMask(proposals[i].Mask)

		if background != nil {
			ratio := OverlapRatio(binary, *background)
			if ratio >= opts.BackgroundOverlapThreshold {
				utils.Logger.Debug("mask excluded by background overlap",
					zap.Int("index", i),
					zap.Float64("overlap_ratio", ratio))
				binary.Close()
				skipped++
				continue
			}
		}

		totalArea := binary.Cols() * binary.Rows()
		pixelCount := gocv.CountNonZero(binary)
		areaRatio := float64(pixelCount) / float64(totalArea)
		if areaRatio < opts.MinArea {
			utils.Logger.Debug("mask excluded by min area",
				zap.Int("index", i),
				zap.Int("pixels", pixelCount),
				zap.Float64("area_ratio", areaRatio))
			binary.Close()
			skipped++
			continue
		}

		filtered = append(filtered, FilteredMask{
			OriginalIndex: i,
			ID:            maskID,
			Mask:          binary,
			Box:           proposals[i].Box,
		})
		maskID++
	}

	utils.Logger.Info("masks filtered",
		zap.Int("candidates", limit),
		zap.Int("kept", len(filtered)),
		zap.Int("skipped", skipped))

	return filtered
}
