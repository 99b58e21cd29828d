package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"PillSync/internal/cache"
	"PillSync/internal/model"
	"PillSync/internal/service"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/logger"
	"PillSync/storage/mq"
)

const processedTTL = 48 * time.Hour

// StartConsumers 启动 worker 的两个消费者，阻塞直到 ctx 取消
func StartConsumers(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	consumers := []mq.ConsumeOptions{
		{
			Queue:         mq.MissedReminderQueue,
			ConsumerTag:   "pillsync-worker-missed",
			PrefetchCount: 10,
			Handler:       handleMissedReminder,
		},
		{
			Queue:         mq.DueReminderQueue,
			ConsumerTag:   "pillsync-worker-due",
			PrefetchCount: 20,
			Handler:       handleDueReminder,
		},
	}

	for _, opts := range consumers {
		wg.Add(1)
		go func(opts mq.ConsumeOptions) {
			defer wg.Done()
			if err := mq.Consume(ctx, opts); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("consumer %s exited: %w", opts.Queue, err)
			}
		}(opts)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
		return ctx.Err()
	}
}

// handleMissedReminder 漏服升级：给患者本人 + 所有看护人发 missed_reminder 通知
func handleMissedReminder(ctx context.Context, body []byte) error {
	var msg model.MissedReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 坏消息重投也救不回来，直接跳过
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("malformed missed message: %v", err)}
	}

	first, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, processedTTL)
	if err != nil {
		return err
	}
	if !first {
		return &pkgerrors.SkipMessageError{Reason: "message already processed: " + msg.MessageID}
	}

	event := service.Event{
		Type:     model.NotificationTypeMissedReminder,
		Priority: model.NotificationPriorityHigh,
		Title:    "Missed medication",
		Message:  fmt.Sprintf("%s (%s) scheduled at %s was not taken", msg.MedicineName, msg.Dosage, msg.ScheduledAt),
		Payload: model.JSONB{
			"reminder_id":   fmt.Sprintf("%d", msg.ReminderID),
			"medicine_name": msg.MedicineName,
			"scheduled_at":  msg.ScheduledAt,
			"missed_at":     msg.MissedAt,
		},
	}

	notifier := service.Fanout()

	// 患者本人一条
	if err := notifier.NotifySelf(ctx, msg.UserID, event); err != nil {
		if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark message after failure", zap.Error(unmarkErr))
		}
		return err
	}

	// 看护人扇出
	notified, err := notifier.Notify(ctx, msg.UserID, event)
	if err != nil {
		if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark message after failure", zap.Error(unmarkErr))
		}
		return err
	}

	logger.Logger.Info("Missed reminder escalated",
		zap.Int64("reminder_id", msg.ReminderID),
		zap.Int64("user_id", msg.UserID),
		zap.Int("caregivers_notified", notified),
	)

	return cache.MarkMessageProcessed(ctx, msg.MessageID, processedTTL)
}

// handleDueReminder 到点提醒：只通知患者本人
func handleDueReminder(ctx context.Context, body []byte) error {
	var msg model.DueReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("malformed due message: %v", err)}
	}

	first, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, processedTTL)
	if err != nil {
		return err
	}
	if !first {
		return &pkgerrors.SkipMessageError{Reason: "message already processed: " + msg.MessageID}
	}

	event := service.Event{
		Type:     model.NotificationTypeReminderDue,
		Priority: model.NotificationPriorityNormal,
		Title:    "Time to take your medication",
		Message:  fmt.Sprintf("%s (%s) is due now", msg.MedicineName, msg.Dosage),
		Payload: model.JSONB{
			"reminder_id":   fmt.Sprintf("%d", msg.ReminderID),
			"medicine_name": msg.MedicineName,
			"scheduled_at":  msg.ScheduledAt,
		},
	}

	if err := service.Fanout().NotifySelf(ctx, msg.UserID, event); err != nil {
		if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark message after failure", zap.Error(unmarkErr))
		}
		return err
	}

	return cache.MarkMessageProcessed(ctx, msg.MessageID, processedTTL)
}
