package cache

import (
	"context"
	"fmt"
	"time"

	"PillSync/storage/redis"
)

const (
	// 漏服升级 / 到点提醒的 occurrence 标记，保证每个排程时刻只触发一次
	missedEscalatedPrefix  = "reminder:missed:escalated"
	dueAlertedPrefix       = "reminder:due:alerted"
	messageProcessedPrefix = "message:processed"

	occurrenceTTL = 48 * time.Hour
	processedTTL  = 48 * time.Hour
)

// occurrenceKey 以提醒 ID + 排程时刻唯一标识一次服药 occurrence
func occurrenceKey(prefix string, reminderID int64, scheduledAt time.Time) string {
	return redis.Key(prefix, fmt.Sprintf("%d", reminderID), fmt.Sprintf("%d", scheduledAt.Unix()))
}

// TryMarkMissedEscalated 原子标记某次 occurrence 的漏服升级已发出
// 返回 true 表示首次标记，调用方可以发布升级消息
func TryMarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error) {
	key := occurrenceKey(missedEscalatedPrefix, reminderID, scheduledAt)

	result, err := redis.Client().SetNX(ctx, key, "1", occurrenceTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark missed escalation: %w", err)
	}
	return result, nil
}

// UnmarkMissedEscalated 发布失败时回滚标记，下一个 tick 可以重试
func UnmarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) error {
	key := occurrenceKey(missedEscalatedPrefix, reminderID, scheduledAt)
	return redis.Client().Del(ctx, key).Err()
}

// TryMarkDueAlerted 原子标记某次 occurrence 的到点提醒已发出
func TryMarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error) {
	key := occurrenceKey(dueAlertedPrefix, reminderID, scheduledAt)

	result, err := redis.Client().SetNX(ctx, key, "1", occurrenceTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark due alert: %w", err)
	}
	return result, nil
}

func UnmarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) error {
	key := occurrenceKey(dueAlertedPrefix, reminderID, scheduledAt)
	return redis.Client().Del(ctx, key).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	// SETNX：如果 key 不存在则设置，返回 true；如果已存在则返回 false
	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	// 更新值为 "completed"，并延长 TTL
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
