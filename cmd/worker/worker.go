package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"PillSync/config"
	"PillSync/internal/queue"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
	"PillSync/pkg/push"
	"PillSync/pkg/snowflake"
	"PillSync/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 消费者落库后要推送到设备，推送不可用时只降级
	if err := push.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize push service", zap.Error(err))
		logger.Logger.Info("Push service will be disabled, notifications persist but will not reach devices")
	}

	if err := metrics.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize domain metrics", zap.Error(err))
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", "pillsync-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 启动所有的消费者部分，阻塞到 ctx 取消或消费异常退出
	if err := queue.StartConsumers(ctx); err != nil {
		logger.Logger.Error("Consumer stopped with error", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
