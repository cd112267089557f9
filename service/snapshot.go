package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/predict"
	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Snapshot 一次请求的调试快照，持有独立的Mat拷贝
type Snapshot struct {
	RequestID     string
	Image         gocv.Mat
	RawMasks      []gocv.Mat
	FilteredMasks []gocv.Mat
	Inpainted     *gocv.Mat
	Background    *gocv.Mat
}

func (s *Snapshot) Close() {
	s.Image.Close()
	for i := range s.RawMasks {
		s.RawMasks[i].Close()
	}
	for i := range s.FilteredMasks {
		s.FilteredMasks[i].Close()
	}
	if s.Inpainted != nil {
		s.Inpainted.Close()
	}
	if s.Background != nil {
		s.Background.Close()
	}
}

// buildSnapshot 拷贝请求内的中间结果，供异步保存使用
func buildSnapshot(requestID string, img gocv.Mat, proposals []predict.Proposal, filtered []FilteredMask, inpainted *gocv.Mat, background *gocv.Mat) *Snapshot {
	snap := &Snapshot{
		RequestID: requestID,
		Image:     img.Clone(),
	}

	for i := range proposals {
		snap.RawMasks = append(snap.RawMasks, BinarizeMask(proposals[i].Mask))
	}
	for i := range filtered {
		snap.FilteredMasks = append(snap.FilteredMasks, filtered[i].Mask.Clone())
	}
	if inpainted != nil {
		clone := inpainted.Clone()
		snap.Inpainted = &clone
	}
	if background != nil {
		clone := background.Clone()
		snap.Background = &clone
	}
	return snap
}

// SnapshotService 异步保存调试图像，保存失败只记录日志
type SnapshotService struct {
	enabled   bool
	outputDir string
	quality   int
}

func NewSnapshotService(cfg *config.DebugConfig) *SnapshotService {
	return &SnapshotService{
		enabled:   cfg.Enabled,
		outputDir: cfg.OutputDir,
		quality:   cfg.JPEGQuality,
	}
}

func (s *SnapshotService) Enabled() bool {
	return s.enabled
}

// SaveAsync 在独立goroutine中保存快照，不阻塞响应路径
func (s *SnapshotService) SaveAsync(snap *Snapshot) {
	go func() {
		defer snap.Close()
		defer func() {
			if r := recover(); r != nil {
				utils.Logger.Error("snapshot save panicked",
					zap.String("request_id", snap.RequestID),
					zap.Any("panic", r))
			}
		}()
		s.save(snap)
	}()
}

func (s *SnapshotService) save(snap *Snapshot) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		utils.Logger.Warn("failed to create snapshot directory", zap.Error(err))
		return
	}

	prefix := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), snap.RequestID)

	s.write(prefix+"_original.jpg", snap.Image)

	if len(snap.RawMasks) > 0 {
		overlay := renderMaskOverlay(snap.Image, snap.RawMasks)
		s.write(prefix+"_segmented_all.jpg", overlay)
		overlay.Close()
	}

	if len(snap.FilteredMasks) > 0 {
		overlay := renderMaskOverlay(snap.Image, snap.FilteredMasks)
		s.write(prefix+"_segmented.jpg", overlay)
		overlay.Close()
	}

	if snap.Inpainted != nil {
		s.write(prefix+"_inpainted.jpg", *snap.Inpainted)
	}

	if snap.Background != nil {
		overlay := renderBackgroundOverlay(snap.Image, *snap.Background)
		s.write(prefix+"_background.jpg", overlay)
		overlay.Close()
	}
}

func (s *SnapshotService) write(name string, img gocv.Mat) {
	path := filepath.Join(s.outputDir, name)
	if ok := gocv.IMWriteWithParams(path, img, []int{gocv.IMWriteJpegQuality, s.quality}); !ok {
		utils.Logger.Warn("failed to write snapshot", zap.String("path", path))
		return
	}
	utils.Logger.Debug("snapshot saved", zap.String("path", path))
}

// renderMaskOverlay 把每个掩码按其分配颜色以半透明方式叠加到原图
func renderMaskOverlay(img gocv.Mat, masks []gocv.Mat) gocv.Mat {
	overlay := img.Clone()
	rows := img.Rows()
	cols := img.Cols()

	for i := range masks {
		resized := ResizeMask(masks[i], cols, rows)

		c := GenerateDistinctColor(i)
		// gocv使用BGR通道顺序
		colored := gocv.NewMatWithSizeFromScalar(
			gocv.NewScalar(float64(c[2]), float64(c[1]), float64(c[0]), 0),
			rows, cols, gocv.MatTypeCV8UC3)

		blended := gocv.NewMat()
		gocv.AddWeighted(overlay, 0.5, colored, 0.5, 0, &blended)
		blended.CopyToWithMask(&overlay, resized)

		blended.Close()
		colored.Close()
		resized.Close()
	}
	return overlay
}

// renderBackgroundOverlay 背景区域以红色高亮
func renderBackgroundOverlay(img gocv.Mat, background gocv.Mat) gocv.Mat {
	overlay := img.Clone()
	rows := img.Rows()
	cols := img.Cols()

	resized := background
	if background.Cols() != cols || background.Rows() != rows {
		resized = ResizeMask(background, cols, rows)
		defer resized.Close()
	}

	red := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(0, 0, 255, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer red.Close()

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(overlay, 0.5, red, 0.5, 0, &blended)
	blended.CopyToWithMask(&overlay, resized)

	return overlay
}
