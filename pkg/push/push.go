package push

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"PillSync/config"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
)

var (
	client *messaging.Client
	once   sync.Once
	err    error
)

// Init 初始化 FCM 客户端，未配置凭证时降级为 no-op
func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		if cfg.FirebaseCredentialsFile == "" {
			logger.Logger.Warn("FCM push disabled: no Firebase credentials configured")
			return
		}

		ctx := context.Background()
		opt := option.WithCredentialsFile(cfg.FirebaseCredentialsFile)

		var app *firebase.App
		app, err = firebase.NewApp(ctx, nil, opt)
		if err != nil {
			return
		}

		client, err = app.Messaging(ctx)
		if err != nil {
			return
		}

		logger.Logger.Info("FCM push client initialized")
	})

	return err
}

// Message 一条推送的内容
type Message struct {
	Title string
	Body  string
	Data  map[string]string
	// HighPriority 漏服升级等需要立刻展示的推送
	HighPriority bool
}

// Send 向单个设备 token 推送，失败只记录不致命
func Send(ctx context.Context, token string, msg Message) error {
	if client == nil {
		return fmt.Errorf("push client not initialized")
	}

	fcmMsg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}

	if msg.HighPriority {
		fcmMsg.Android = &messaging.AndroidConfig{Priority: "high"}
	}

	if _, sendErr := client.Send(ctx, fcmMsg); sendErr != nil {
		metrics.RecordPushFailure(ctx)
		return fmt.Errorf("failed to send push: %w", sendErr)
	}

	metrics.RecordPushSuccess(ctx)
	return nil
}

// SendToTokens 逐个 token 推送，返回成功数量
// 部分失败不影响其余 token，失效 token 只记日志
func SendToTokens(ctx context.Context, tokens []string, msg Message) int {
	if client == nil || len(tokens) == 0 {
		return 0
	}

	sent := 0
	for _, token := range tokens {
		if err := Send(ctx, token, msg); err != nil {
			logger.Logger.Warn("Push delivery failed",
				zap.String("token_suffix", tail(token)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	return sent
}

// tail 只记录 token 尾部，避免日志里落完整 token
func tail(token string) string {
	if len(token) <= 8 {
		return token
	}
	return "..." + token[len(token)-8:]
}
