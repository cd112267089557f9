package service

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// ExpandBBox 按自身宽高的比例扩展边界框，并裁剪到图像范围内
func ExpandBBox(bbox []float64, width, height int, paddingRatio float64) []int {
	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]
	padX := (x2 - x1) * paddingRatio
	padY := (y2 - y1) * paddingRatio

	return []int{
		int(math.Max(0, x1-padX)),
		int(math.Max(0, y1-padY)),
		int(math.Min(float64(width), x2+padX)),
		int(math.Min(float64(height), y2+padY)),
	}
}

// ClampBBox 将边界框裁剪到图像范围内并取整
func ClampBBox(bbox []float64, width, height int) []int {
	return []int{
		int(math.Max(0, bbox[0])),
		int(math.Max(0, bbox[1])),
		int(math.Min(float64(width), bbox[2])),
		int(math.Min(float64(height), bbox[3])),
	}
}

// ResizeMask 用最近邻插值缩放掩码，保持二值边缘
func ResizeMask(mask gocv.Mat, width, height int) gocv.Mat {
	resized := gocv.NewMat()
	gocv.Resize(mask, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationNearestNeighbor)
	return resized
}

// DilateMask 用椭圆结构元素膨胀掩码，radius为0时返回原掩码的拷贝
func DilateMask(mask gocv.Mat, radius int) gocv.Mat {
	if radius <= 0 {
		return mask.Clone()
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(radius*2+1, radius*2+1))
	defer kernel.Close()

	dilated := gocv.NewMat()
	gocv.Dilate(mask, &dilated, kernel)
	return dilated
}

// BinarizeMask 以0.5（127/255）为阈值将概率图二值化为0/255
func BinarizeMask(prob gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	gocv.Threshold(prob, &binary, 127, 255, gocv.ThresholdBinary)
	return binary
}

// CropRegion 裁剪指定区域，rect必须已裁剪到图像范围内
func CropRegion(m gocv.Mat, rect image.Rectangle) gocv.Mat {
	region := m.Region(rect)
	defer region.Close()
	return region.Clone()
}
