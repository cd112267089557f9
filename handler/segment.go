package handler

import (
	"net/http"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/service"
	"github.com/TIANLI0/MaskKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SegmentHandler struct {
	cfg          *config.Config
	redisService *service.RedisService
	pipeline     *service.Pipeline
}

func NewSegmentHandler(cfg *config.Config, redis *service.RedisService, pipeline *service.Pipeline) *SegmentHandler {
	return &SegmentHandler{
		cfg:          cfg,
		redisService: redis,
		pipeline:     pipeline,
	}
}

// Segment 处理分割请求
func (h *SegmentHandler) Segment(c *gin.Context) {
	var req model.SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.SegmentResponse{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
			Masks:   []model.MaskPayload{},
		})
		return
	}

	opts, err := service.ResolveOptions(&req, &h.cfg.Segment)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.SegmentResponse{
			Success: false,
			Error:   err.Error(),
			Masks:   []model.MaskPayload{},
		})
		return
	}

	requestID := utils.GenerateRequestID()
	ctx := c.Request.Context()

	// 缓存键由图片内容和全部参数共同决定
	cacheKey := utils.StringMD5(req.Image + "|" + opts.Digest())
	if h.redisService != nil {
		cached, err := h.redisService.GetSegmentResult(ctx, cacheKey)
		if err != nil {
			utils.Logger.Warn("failed to get cache", zap.Error(err))
		}
		if cached != nil {
			utils.Logger.Info("cache hit",
				zap.String("request_id", requestID),
				zap.String("cache_key", cacheKey))
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	resp, err := h.pipeline.Process(ctx, req.Image, requestID, opts)
	if err != nil {
		utils.Logger.Error("failed to process segment request",
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusOK, model.SegmentResponse{
			Success: false,
			Error:   err.Error(),
			Masks:   []model.MaskPayload{},
		})
		return
	}

	if h.redisService != nil {
		if err := h.redisService.SetSegmentResult(ctx, cacheKey, resp); err != nil {
			utils.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}
