package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"PillSync/config"
	"PillSync/pkg/logger"
)

var (
	client *resty.Client
	once   sync.Once
)

type recognizeResponse struct {
	Text string `json:"text"`
}

// Init 初始化 OCR HTTP 客户端
func Init() {
	once.Do(func() {
		cfg := config.Cfg

		client = resty.New().
			SetTimeout(time.Duration(cfg.OCRTimeoutSeconds) * time.Second).
			SetRetryCount(1).
			SetHeader("Accept", "application/json")
	})
}

// Recognize 调用外部文字识别服务，返回识别出的文本。
// 任何失败（未配置、超时、非 2xx）都降级为空文本，由匹配器按 mismatch 处理，
// 不向用户暴露 OCR 故障。
func Recognize(ctx context.Context, image []byte) string {
	cfg := config.Cfg

	if cfg.OCREndpoint == "" || client == nil {
		return ""
	}

	var result recognizeResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(image).
		SetResult(&result).
		Post(cfg.OCREndpoint)

	if err != nil {
		logger.Logger.Warn("OCR request failed", zap.Error(err))
		return ""
	}

	if resp.IsError() {
		logger.Logger.Warn("OCR service returned error",
			zap.Int("status", resp.StatusCode()),
		)
		return ""
	}

	return result.Text
}
