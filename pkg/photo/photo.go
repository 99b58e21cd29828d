package photo

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	firebasestorage "firebase.google.com/go/v4/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"PillSync/config"
	"PillSync/pkg/logger"
)

var (
	client *firebasestorage.Client
	once   sync.Once
	err    error
)

// Init 初始化 Firebase Storage 客户端，未配置时降级为占位 URL
func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		if cfg.FirebaseCredentialsFile == "" || cfg.FirebaseStorageBucket == "" {
			logger.Logger.Warn("Photo storage disabled: Firebase credentials or bucket not configured")
			return
		}

		ctx := context.Background()
		opt := option.WithCredentialsFile(cfg.FirebaseCredentialsFile)

		var app *firebase.App
		app, err = firebase.NewApp(ctx, &firebase.Config{
			StorageBucket: cfg.FirebaseStorageBucket,
		}, opt)
		if err != nil {
			return
		}

		client, err = app.Storage(ctx)
		if err != nil {
			return
		}

		logger.Logger.Info("Photo storage client initialized")
	})

	return err
}

// Upload 上传验证照片，返回存储路径
// 路径布局 verifications/{userID}/{reminderID}/{uuid}.jpg
func Upload(ctx context.Context, userID, reminderID int64, data []byte) (string, error) {
	objectPath := fmt.Sprintf("verifications/%d/%d/%s.jpg", userID, reminderID, uuid.NewString())

	if client == nil {
		// 本地开发无 Firebase 时返回占位路径，验证流程不中断
		return "unstored://" + objectPath, nil
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return "", fmt.Errorf("failed to get storage bucket: %w", err)
	}

	writer := bucket.Object(objectPath).NewWriter(ctx)
	writer.ContentType = "image/jpeg"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize photo upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", config.Cfg.FirebaseStorageBucket, objectPath), nil
}
