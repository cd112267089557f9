package service

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// rectMask 构建在指定矩形内为255、其余为0的二值掩码
func rectMask(width, height int, r image.Rectangle) gocv.Mat {
	m := gocv.Zeros(height, width, gocv.MatTypeCV8U)
	region := m.Region(r)
	region.SetTo(gocv.NewScalar(255, 0, 0, 0))
	region.Close()
	return m
}

func matsEqual(t *testing.T, a, b gocv.Mat) bool {
	t.Helper()
	require.Equal(t, a.Rows(), b.Rows())
	require.Equal(t, a.Cols(), b.Cols())

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	return gocv.CountNonZero(diff) == 0
}

func TestExpandBBox(t *testing.T) {
	tests := []struct {
		name   string
		bbox   []float64
		ratio  float64
		expect []int
	}{
		{
			name:   "inner box expands",
			bbox:   []float64{100, 100, 200, 200},
			ratio:  0.1,
			expect: []int{90, 90, 210, 210},
		},
		{
			name:   "clamped at origin",
			bbox:   []float64{0, 0, 100, 100},
			ratio:  0.15,
			expect: []int{0, 0, 115, 115},
		},
		{
			name:   "clamped at far edge",
			bbox:   []float64{500, 400, 640, 480},
			ratio:  0.5,
			expect: []int{430, 360, 640, 480},
		},
		{
			name:   "degenerate box stays degenerate",
			bbox:   []float64{50, 50, 50, 50},
			ratio:  0.2,
			expect: []int{50, 50, 50, 50},
		},
		{
			name:   "out of range input is clamped",
			bbox:   []float64{-100, -50, 1000, 900},
			ratio:  0.1,
			expect: []int{0, 0, 640, 480},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandBBox(tt.bbox, 640, 480, tt.ratio)
			assert.Equal(t, tt.expect, got)

			// 输出必须始终落在图像范围内
			assert.GreaterOrEqual(t, got[0], 0)
			assert.GreaterOrEqual(t, got[1], 0)
			assert.LessOrEqual(t, got[2], 640)
			assert.LessOrEqual(t, got[3], 480)
		})
	}
}

func TestResizeMaskRoundTrip(t *testing.T) {
	// 整数倍分辨率间的最近邻往返缩放必须保持掩码不变
	original := rectMask(16, 12, image.Rect(3, 2, 9, 7))
	defer original.Close()

	up := ResizeMask(original, 64, 48)
	defer up.Close()
	down := ResizeMask(up, 16, 12)
	defer down.Close()

	assert.True(t, matsEqual(t, original, down))
}

func TestResizeMaskStaysBinary(t *testing.T) {
	original := rectMask(20, 20, image.Rect(5, 5, 15, 15))
	defer original.Close()

	resized := ResizeMask(original, 33, 27)
	defer resized.Close()

	for y := 0; y < resized.Rows(); y++ {
		for x := 0; x < resized.Cols(); x++ {
			v := resized.GetUCharAt(y, x)
			require.True(t, v == 0 || v == 255, "non-binary value %d at (%d,%d)", v, x, y)
		}
	}
}

func TestDilateMaskZeroRadius(t *testing.T) {
	original := rectMask(30, 30, image.Rect(10, 10, 20, 20))
	defer original.Close()

	dilated := DilateMask(original, 0)
	defer dilated.Close()

	assert.True(t, matsEqual(t, original, dilated))
}

func TestDilateMaskGrows(t *testing.T) {
	original := rectMask(50, 50, image.Rect(20, 20, 30, 30))
	defer original.Close()

	dilated := DilateMask(original, 3)
	defer dilated.Close()

	assert.Greater(t, gocv.CountNonZero(dilated), gocv.CountNonZero(original))
	// 膨胀半径3时边界最多外扩3个像素
	assert.Equal(t, uint8(255), dilated.GetUCharAt(17, 25))
	assert.Equal(t, uint8(0), dilated.GetUCharAt(10, 25))
}

func TestBinarizeMask(t *testing.T) {
	prob := gocv.Zeros(4, 4, gocv.MatTypeCV8U)
	defer prob.Close()
	prob.SetUCharAt(0, 0, 127) // 恰好0.5不属于前景
	prob.SetUCharAt(1, 1, 128)
	prob.SetUCharAt(2, 2, 255)

	binary := BinarizeMask(prob)
	defer binary.Close()

	assert.Equal(t, uint8(0), binary.GetUCharAt(0, 0))
	assert.Equal(t, uint8(255), binary.GetUCharAt(1, 1))
	assert.Equal(t, uint8(255), binary.GetUCharAt(2, 2))
	assert.Equal(t, 2, gocv.CountNonZero(binary))
}

func TestCropRegion(t *testing.T) {
	original := rectMask(40, 40, image.Rect(10, 10, 30, 30))
	defer original.Close()

	crop := CropRegion(original, image.Rect(10, 10, 30, 30))
	defer crop.Close()

	assert.Equal(t, 20, crop.Cols())
	assert.Equal(t, 20, crop.Rows())
	assert.Equal(t, 400, gocv.CountNonZero(crop))
}
