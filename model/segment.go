package model

// SegmentRequest 分割请求参数，未提供的字段使用服务端默认值
type SegmentRequest struct {
	Image                      string   `json:"image" binding:"required"` // base64编码的图片数据
	Conf                       *float64 `json:"conf"`
	IoU                        *float64 `json:"iou"`
	MaxMasks                   *int     `json:"max_masks"`
	MinArea                    *float64 `json:"min_area"`
	CombinedInpaint            *bool    `json:"combined_inpaint"`
	DilatePixels               *int     `json:"dilate_pixels"`
	InpaintScale               *float64 `json:"inpaint_scale"`
	ExcludeBackground          *string  `json:"exclude_background"` // none, semantic, heuristic
	BackgroundOverlapThreshold *float64 `json:"background_overlap_threshold"`
}

// MaskPayload 单个掩码的响应数据
type MaskPayload struct {
	ID          int       `json:"id"`
	Data        string    `json:"data"` // base64编码的PNG掩码
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	BBox        []float64 `json:"bbox"` // [x1, y1, x2, y2]，可能为null
	Color       []int     `json:"color"`
	InpaintData string    `json:"inpaint_data,omitempty"` // base64编码的JPEG修复结果
	InpaintBBox []int     `json:"inpaint_bbox,omitempty"`
}

// SegmentResponse 分割响应
type SegmentResponse struct {
	Success             bool          `json:"success"`
	Count               int           `json:"count"`
	Masks               []MaskPayload `json:"masks"`
	ProcessingTime      float64       `json:"processing_time,omitempty"` // 秒
	ImageSize           []int         `json:"image_size,omitempty"`      // [width, height]
	CombinedInpaintData string        `json:"combined_inpaint_data,omitempty"`
	Error               string        `json:"error,omitempty"`
}

// StreamRequest WebSocket低保真模式的请求
type StreamRequest struct {
	Image    string  `json:"image"`
	Conf     float64 `json:"conf"`
	IoU      float64 `json:"iou"`
	MaxMasks int     `json:"max_masks"`
}

// StreamMask WebSocket模式的掩码数据，仅包含掩码图像
type StreamMask struct {
	ID     int    `json:"id"`
	Data   string `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// StreamResponse WebSocket模式的响应
type StreamResponse struct {
	Success        bool         `json:"success"`
	Count          int          `json:"count"`
	Masks          []StreamMask `json:"masks"`
	ProcessingTime float64      `json:"processing_time,omitempty"`
	ImageSize      []int        `json:"image_size,omitempty"`
	Message        string       `json:"message,omitempty"`
}

// StreamError WebSocket模式的错误消息
type StreamError struct {
	Error string `json:"error"`
}
