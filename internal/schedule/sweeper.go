package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"PillSync/config"
	"PillSync/internal/cache"
	"PillSync/internal/service"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
)

// SweepResult 一次巡检的结果
type SweepResult struct {
	Processed  int // 评估过的提醒数
	AlertsSent int // 发出的到点提醒 + 漏服升级数
}

var (
	sweepMu      sync.Mutex
	sweepRunning bool
)

const sweepLockKey = "reminder:sweep"

// RunSweep 执行一次无状态巡检：捞出进入窗口的提醒逐个评估。
// 进程内互斥 + redis 分布式锁，多实例部署下同一时刻只有一个巡检在跑。
func RunSweep(ctx context.Context) (SweepResult, error) {
	sweepMu.Lock()
	if sweepRunning {
		sweepMu.Unlock()
		return SweepResult{}, pkgerrors.SweepInProgress
	}
	sweepRunning = true
	sweepMu.Unlock()

	defer func() {
		sweepMu.Lock()
		sweepRunning = false
		sweepMu.Unlock()
	}()

	lockTTL := time.Duration(config.Cfg.ReminderSweepTimeoutSec) * time.Second
	acquired, err := cache.TryLock(ctx, sweepLockKey, lockTTL)
	if err != nil {
		return SweepResult{}, err
	}
	if !acquired {
		return SweepResult{}, pkgerrors.SweepInProgress
	}
	defer func() {
		if err := cache.Unlock(context.Background(), sweepLockKey); err != nil {
			logger.Logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	engine := service.Reminder()
	now := engine.Now()

	candidates, err := engine.ListDueCandidates(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{}
	var evalErrs []error

	for i := range candidates {
		outcome, err := engine.EvaluateDue(ctx, &candidates[i], now)
		if err != nil {
			// 单条失败不中断整轮，留给下一个 tick 重试
			evalErrs = append(evalErrs, err)
			logger.Logger.Error("Failed to evaluate reminder",
				zap.Int64("reminder_id", candidates[i].PublicID),
				zap.Error(err),
			)
			continue
		}

		result.Processed++
		if outcome == service.OutcomeDueAlert || outcome == service.OutcomeMissed {
			result.AlertsSent++
		}
	}

	metrics.RecordSweepPass(ctx, result.Processed, result.AlertsSent)

	logger.Logger.Info("Sweep pass completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("processed", result.Processed),
		zap.Int("alerts_sent", result.AlertsSent),
		zap.Int("errors", len(evalErrs)),
	)

	return result, nil
}

// RunSweepLoop 调度器进程的主循环，按固定间隔触发巡检直到 ctx 取消
func RunSweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Sweep loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Sweep loop stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Cfg.ReminderSweepTimeoutSec)*time.Second)
			if _, err := RunSweep(sweepCtx); err != nil && err != pkgerrors.SweepInProgress {
				logger.Logger.Error("Sweep pass failed", zap.Error(err))
			}
			cancel()
		}
	}
}
