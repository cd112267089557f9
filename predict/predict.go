package predict

import (
	"context"

	"gocv.io/x/gocv"
)

// Proposal 候选对象分割结果，Mask为模型分辨率下的概率图（0-255对应[0,1]）
type Proposal struct {
	Mask gocv.Mat
	Box  []float64 // [x1, y1, x2, y2]，原图像素坐标，可能为nil
}

func (p *Proposal) Close() {
	if !p.Mask.Empty() {
		p.Mask.Close()
	}
}

// CloseProposals 释放所有候选掩码
func CloseProposals(proposals []Proposal) {
	for i := range proposals {
		proposals[i].Close()
	}
}

// Proposer 对象候选分割模型
type Proposer interface {
	Propose(ctx context.Context, image []byte, conf, iou float64) ([]Proposal, error)
}

// SemanticSegmenter 语义分割模型，返回模型分辨率下的类别ID图（CV8U单通道）
type SemanticSegmenter interface {
	Segment(ctx context.Context, image []byte) (gocv.Mat, error)
}

// Inpainter 图像修复模型，mask中非零像素会被填充
type Inpainter interface {
	Inpaint(ctx context.Context, image, mask gocv.Mat) (gocv.Mat, error)
}
