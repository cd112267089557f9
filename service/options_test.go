package service

import (
	"testing"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSegmentConfig() *config.SegmentConfig {
	return &config.SegmentConfig{
		Conf:                       0.25,
		IoU:                        0.9,
		MaxMasks:                   20,
		MinArea:                    0.005,
		CombinedInpaint:            true,
		DilatePixels:               10,
		InpaintScale:               0.25,
		ExcludeBackground:          ExcludeNone,
		BackgroundOverlapThreshold: 0.5,
	}
}

func TestResolveOptionsDefaults(t *testing.T) {
	opts, err := ResolveOptions(&model.SegmentRequest{Image: "x"}, testSegmentConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.25, opts.Conf)
	assert.Equal(t, 0.9, opts.IoU)
	assert.Equal(t, 20, opts.MaxMasks)
	assert.Equal(t, 0.005, opts.MinArea)
	assert.True(t, opts.CombinedInpaint)
	assert.Equal(t, 10, opts.DilatePixels)
	assert.Equal(t, 0.25, opts.InpaintScale)
	assert.Equal(t, ExcludeNone, opts.ExcludeBackground)
}

func TestResolveOptionsOverrides(t *testing.T) {
	conf := 0.4
	maxMasks := 5
	combined := false
	mode := ExcludeSemantic

	opts, err := ResolveOptions(&model.SegmentRequest{
		Image:             "x",
		Conf:              &conf,
		MaxMasks:          &maxMasks,
		CombinedInpaint:   &combined,
		ExcludeBackground: &mode,
	}, testSegmentConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.4, opts.Conf)
	assert.Equal(t, 5, opts.MaxMasks)
	assert.False(t, opts.CombinedInpaint)
	assert.Equal(t, ExcludeSemantic, opts.ExcludeBackground)
}

func TestResolveOptionsClampsInpaintScale(t *testing.T) {
	low := 0.1
	opts, err := ResolveOptions(&model.SegmentRequest{Image: "x", InpaintScale: &low}, testSegmentConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.25, opts.InpaintScale)

	high := 2.0
	opts, err = ResolveOptions(&model.SegmentRequest{Image: "x", InpaintScale: &high}, testSegmentConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, opts.InpaintScale)
}

func TestResolveOptionsRejectsUnknownMode(t *testing.T) {
	mode := "depth"
	_, err := ResolveOptions(&model.SegmentRequest{Image: "x", ExcludeBackground: &mode}, testSegmentConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude_background")
}

func TestOptionsDigestDistinguishesParams(t *testing.T) {
	a, err := ResolveOptions(&model.SegmentRequest{Image: "x"}, testSegmentConfig())
	require.NoError(t, err)

	conf := 0.3
	b, err := ResolveOptions(&model.SegmentRequest{Image: "x", Conf: &conf}, testSegmentConfig())
	require.NoError(t, err)

	assert.NotEqual(t, a.Digest(), b.Digest())
}
