package service

import (
	"context"

	"github.com/TIANLI0/MaskKit/predict"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ADE20K中视为结构背景的类别：墙=0, 地面=3, 天花板=5
var structuralClassIDs = []uint8{0, 3, 5}

// BackgroundService 将语义分割结果映射为结构背景掩码
type BackgroundService struct {
	segmenter predict.SemanticSegmenter
}

func NewBackgroundService(segmenter predict.SemanticSegmenter) *BackgroundService {
	return &BackgroundService{segmenter: segmenter}
}

// ClassifyBackground 调用语义分割模型，返回背景掩码和完整类别图
func (s *BackgroundService) ClassifyBackground(ctx context.Context, image []byte) (gocv.Mat, gocv.Mat, error) {
	labels, err := s.segmenter.Segment(ctx, image)
	if err != nil {
		return gocv.Mat{}, gocv.Mat{}, err
	}

	background := gocv.Zeros(labels.Rows(), labels.Cols(), gocv.MatTypeCV8U)
	for _, id := range structuralClassIDs {
		classMat := gocv.NewMatFromScalar(gocv.Scalar{Val1: float64(id)}, gocv.MatTypeCV8U)
		match := gocv.NewMat()
		gocv.Compare(labels, classMat, &match, gocv.CompareEQ)
		gocv.BitwiseOr(background, match, &background)
		match.Close()
		classMat.Close()
	}

	utils.Logger.Debug("background classified",
		zap.Int("width", background.Cols()),
		zap.Int("height", background.Rows()),
		zap.Int("background_pixels", gocv.CountNonZero(background)))

	return background, labels, nil
}

// OverlapRatio 计算二值掩码与背景掩码的重叠率，空掩码返回0
func OverlapRatio(mask, background gocv.Mat) float64 {
	maskArea := gocv.CountNonZero(mask)
	if maskArea == 0 {
		return 0.0
	}

	bg := background
	if background.Cols() != mask.Cols() || background.Rows() != mask.Rows() {
		resized := ResizeMask(background, mask.Cols(), mask.Rows())
		defer resized.Close()
		bg = resized
	}

	overlap := gocv.NewMat()
	defer overlap.Close()
	gocv.BitwiseAnd(mask, bg, &overlap)

	return float64(gocv.CountNonZero(overlap)) / float64(maskArea)
}
