package utils

import (
	"github.com/segmentio/ksuid"
)

// GenerateRequestID 生成按时间排序的请求ID
func GenerateRequestID() string {
	return ksuid.New().String()
}
