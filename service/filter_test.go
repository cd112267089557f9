package service

import (
	"image"
	"testing"

	"github.com/TIANLI0/MaskKit/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// proposalWithArea 构建占总面积指定比例的矩形候选掩码（100x100分辨率）
func proposalWithArea(pixels int) predict.Proposal {
	side := 1
	for side*side < pixels {
		side++
	}
	// 用宽度调整出精确的像素数
	width := pixels / side
	for width*side != pixels {
		side--
		width = pixels / side
	}
	return predict.Proposal{
		Mask: rectMask(100, 100, image.Rect(0, 0, width, side)),
		Box:  []float64{0, 0, float64(width), float64(side)},
	}
}

func defaultFilterOptions() *SegmentOptions {
	return &SegmentOptions{
		MaxMasks:                   20,
		MinArea:                    0.01,
		BackgroundOverlapThreshold: 0.5,
		ExcludeBackground:          ExcludeNone,
	}
}

func TestFilterMasksByArea(t *testing.T) {
	// 面积比例 {0.002, 0.01, 0.05, 0.2, 0.5}，min_area=0.01时仅0.002被丢弃
	proposals := []predict.Proposal{
		proposalWithArea(20),
		proposalWithArea(100),
		proposalWithArea(500),
		proposalWithArea(2000),
		proposalWithArea(5000),
	}
	defer predict.CloseProposals(proposals)

	filtered := FilterMasks(proposals, defaultFilterOptions(), nil)
	defer CloseFilteredMasks(filtered)

	require.Len(t, filtered, 4)
	for i, fm := range filtered {
		assert.Equal(t, i, fm.ID)
		assert.Equal(t, i+1, fm.OriginalIndex)
	}
}

func TestFilterMasksMaxMasksCap(t *testing.T) {
	proposals := make([]predict.Proposal, 6)
	for i := range proposals {
		proposals[i] = proposalWithArea(2000)
	}
	defer predict.CloseProposals(proposals)

	opts := defaultFilterOptions()
	opts.MaxMasks = 3

	filtered := FilterMasks(proposals, opts, nil)
	defer CloseFilteredMasks(filtered)

	// 超出上限的候选即使满足条件也不参与
	require.Len(t, filtered, 3)
	assert.Equal(t, 2, filtered[2].OriginalIndex)
}

func TestFilterMasksBackgroundThresholdIsStrict(t *testing.T) {
	background := rectMask(100, 100, image.Rect(0, 0, 50, 100))
	defer background.Close()

	// 恰好一半落在背景内：重叠率0.5，阈值0.5时必须被排除
	half := predict.Proposal{
		Mask: rectMask(100, 100, image.Rect(40, 0, 60, 50)),
		Box:  []float64{40, 0, 60, 50},
	}
	// 完全在背景外
	outside := predict.Proposal{
		Mask: rectMask(100, 100, image.Rect(60, 0, 90, 50)),
		Box:  []float64{60, 0, 90, 50},
	}
	proposals := []predict.Proposal{half, outside}
	defer predict.CloseProposals(proposals)

	filtered := FilterMasks(proposals, defaultFilterOptions(), &background)
	defer CloseFilteredMasks(filtered)

	require.Len(t, filtered, 1)
	assert.Equal(t, 1, filtered[0].OriginalIndex)
	assert.Equal(t, 0, filtered[0].ID)
}

func TestFilterMasksEmptyInput(t *testing.T) {
	filtered := FilterMasks(nil, defaultFilterOptions(), nil)
	assert.NotNil(t, filtered)
	assert.Empty(t, filtered)
}

func TestFilterMasksIdempotent(t *testing.T) {
	proposals := []predict.Proposal{
		proposalWithArea(100),
		proposalWithArea(500),
		proposalWithArea(2000),
	}
	defer predict.CloseProposals(proposals)

	opts := defaultFilterOptions()
	first := FilterMasks(proposals, opts, nil)
	defer CloseFilteredMasks(first)
	require.Len(t, first, 3)

	// 把第一轮的幸存者作为新候选再过滤一次，结果不应有任何变化
	second := make([]predict.Proposal, 0, len(first))
	for i := range first {
		second = append(second, predict.Proposal{
			Mask: first[i].Mask.Clone(),
			Box:  first[i].Box,
		})
	}
	defer predict.CloseProposals(second)

	refiltered := FilterMasks(second, opts, nil)
	defer CloseFilteredMasks(refiltered)

	require.Len(t, refiltered, len(first))
	for i := range refiltered {
		assert.Equal(t, first[i].ID, refiltered[i].ID)
		assert.Equal(t, gocv.CountNonZero(first[i].Mask), gocv.CountNonZero(refiltered[i].Mask))
	}
}
