package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"PillSync/config"
	"PillSync/internal/service"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
)

// SessionTicker 客户端触发路径：用户打开 app（session open）后，
// 为该用户起一个协作式轮询循环，按 tick 间隔评估 TA 的提醒。
// 和 sweep 共用同一套 EvaluateDue / CAS 纪律，不会重复升级。

type session struct {
	cancel   context.CancelFunc
	lastSeen time.Time
}

var (
	sessionMu sync.Mutex
	sessions  = make(map[int64]*session)
)

// OpenSession 打开（或续期）用户会话。已开的会话只刷新空闲时间。
func OpenSession(userID int64) {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	if existing, ok := sessions[userID]; ok {
		existing.lastSeen = time.Now()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sessions[userID] = &session{
		cancel:   cancel,
		lastSeen: time.Now(),
	}

	go runUserTicker(ctx, userID)

	logger.Logger.Info("Session opened", zap.Int64("user_id", userID))
}

// CloseSession 关闭用户会话，停止其轮询循环
func CloseSession(userID int64) {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	if existing, ok := sessions[userID]; ok {
		existing.cancel()
		delete(sessions, userID)
		logger.Logger.Info("Session closed", zap.Int64("user_id", userID))
	}
}

// CloseAllSessions 进程退出时回收全部会话
func CloseAllSessions() {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	for userID, s := range sessions {
		s.cancel()
		delete(sessions, userID)
	}
}

func runUserTicker(ctx context.Context, userID int64) {
	interval := config.Cfg.TickInterval()
	idleLimit := time.Duration(config.Cfg.ReminderSessionIdleMin) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sessionExpired(userID, idleLimit) {
				CloseSession(userID)
				return
			}

			tickUser(ctx, userID)
		}
	}
}

// sessionExpired 超过空闲上限没有心跳就自动收回
func sessionExpired(userID int64, idleLimit time.Duration) bool {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	s, ok := sessions[userID]
	if !ok {
		return true
	}
	return time.Since(s.lastSeen) > idleLimit
}

// tickUser 评估单个用户的所有提醒
func tickUser(ctx context.Context, userID int64) {
	engine := service.Reminder()
	now := engine.Now()

	reminders, err := engine.ListForUser(ctx, userID)
	if err != nil {
		logger.Logger.Error("Session tick: failed to list reminders",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}

	processed, alerts := 0, 0
	for i := range reminders {
		outcome, err := engine.EvaluateDue(ctx, &reminders[i], now)
		if err != nil {
			logger.Logger.Error("Session tick: evaluation failed",
				zap.Int64("reminder_id", reminders[i].PublicID),
				zap.Error(err),
			)
			continue
		}

		processed++
		if outcome == service.OutcomeDueAlert || outcome == service.OutcomeMissed {
			alerts++
		}
	}

	metrics.RecordTickProcessed(ctx, processed, alerts)
}
