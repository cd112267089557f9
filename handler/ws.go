package handler

import (
	"encoding/json"
	"net/http"

	"github.com/TIANLI0/MaskKit/model"
	"github.com/TIANLI0/MaskKit/service"
	"github.com/TIANLI0/MaskKit/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket低保真模式的默认参数
const (
	streamDefaultConf     = 0.4
	streamDefaultIoU      = 0.9
	streamDefaultMaxMasks = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StreamHandler struct {
	pipeline *service.Pipeline
}

func NewStreamHandler(pipeline *service.Pipeline) *StreamHandler {
	return &StreamHandler{pipeline: pipeline}
}

// Serve 处理WebSocket连接：逐条接收图片消息并返回掩码图。
// 单条消息的处理失败只回复错误消息，连接保持。
func (h *StreamHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	utils.Logger.Info("websocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			utils.Logger.Info("websocket client disconnected",
				zap.String("remote", conn.RemoteAddr().String()))
			return
		}

		var req model.StreamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.writeError(conn, "invalid JSON format")
			continue
		}
		if req.Image == "" {
			h.writeError(conn, "no image data provided")
			continue
		}

		conf := req.Conf
		if conf <= 0 {
			conf = streamDefaultConf
		}
		iou := req.IoU
		if iou <= 0 {
			iou = streamDefaultIoU
		}
		maxMasks := req.MaxMasks
		if maxMasks <= 0 {
			maxMasks = streamDefaultMaxMasks
		}

		resp, err := h.pipeline.StreamMasks(ctx, req.Image, conf, iou, maxMasks)
		if err != nil {
			utils.Logger.Error("failed to process websocket request", zap.Error(err))
			h.writeError(conn, err.Error())
			continue
		}

		if err := conn.WriteJSON(resp); err != nil {
			utils.Logger.Error("failed to write websocket response", zap.Error(err))
			return
		}
	}
}

func (h *StreamHandler) writeError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(model.StreamError{Error: message}); err != nil {
		utils.Logger.Error("failed to write websocket error", zap.Error(err))
	}
}
