package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"PillSync/internal/model"
	"PillSync/internal/repository"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
	"PillSync/pkg/push"
	"PillSync/storage/database"
)

// Event 一次要扇出的通知内容
type Event struct {
	Type     model.NotificationType
	Priority model.NotificationPriority
	Title    string
	Message  string
	Payload  model.JSONB
}

// Notifier 通知扇出接口，引擎和 worker 都通过它发通知
type Notifier interface {
	// Notify 解析患者当前的看护人列表并逐个写通知行，返回成功落库的条数
	Notify(ctx context.Context, subjectID int64, event Event) (int, error)
	// NotifySelf 给患者本人写一条通知
	NotifySelf(ctx context.Context, userID int64, event Event) error
}

// Pusher 推送发送面，测试时用 fake 替换
type Pusher interface {
	SendToTokens(ctx context.Context, tokens []string, msg push.Message) int
}

var (
	fanoutService *FanoutService
	fanoutOnce    sync.Once
)

// Fanout 生产环境单例
func Fanout() *FanoutService {
	fanoutOnce.Do(func() {
		db := database.DB()
		fanoutService = NewFanoutService(
			repository.NewUserStore(db),
			repository.NewNotificationStore(db),
			fcmPusher{},
		)
	})

	return fanoutService
}

func NewFanoutService(users repository.UserStore, notifications repository.NotificationStore, pusher Pusher) *FanoutService {
	return &FanoutService{
		users:         users,
		notifications: notifications,
		pusher:        pusher,
	}
}

type FanoutService struct {
	users         repository.UserStore
	notifications repository.NotificationStore
	pusher        Pusher
}

// Notify 看护人扇出。看护人列表在投递时刻解析，事件产生后移除的看护人不会收到。
// 通知行落库与推送解耦：行写成功就计数，推送失败只记日志。
func (s *FanoutService) Notify(ctx context.Context, subjectID int64, event Event) (int, error) {
	subject, err := s.users.GetByPublicID(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	if len(subject.Caregivers) == 0 {
		// 没有看护人是合法状态，零通知返回
		return 0, nil
	}

	notified := 0
	var failures []error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, caregiverID := range subject.Caregivers {
		row := &model.Notification{
			Type:        event.Type,
			RecipientID: caregiverID,
			SubjectID:   subjectID,
			Title:       event.Title,
			Message:     event.Message,
			Payload:     event.Payload,
			Priority:    event.Priority,
		}

		if err := s.notifications.Create(ctx, row); err != nil {
			logger.Logger.Error("Failed to persist caregiver notification",
				zap.Int64("caregiver_id", caregiverID),
				zap.Int64("subject_id", subjectID),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			continue
		}

		notified++

		// 推送并发派发，结果只收集不阻断
		wg.Add(1)
		go func(recipientID int64) {
			defer wg.Done()
			s.pushTo(ctx, recipientID, event)
		}(caregiverID)
	}

	wg.Wait()

	metrics.RecordFanoutRows(ctx, notified, string(event.Type))

	if notified == 0 && len(failures) > 0 {
		return 0, failures[0]
	}

	return notified, nil
}

// NotifySelf 患者本人的到点/漏服通知
func (s *FanoutService) NotifySelf(ctx context.Context, userID int64, event Event) error {
	row := &model.Notification{
		Type:        event.Type,
		RecipientID: userID,
		SubjectID:   userID,
		Title:       event.Title,
		Message:     event.Message,
		Payload:     event.Payload,
		Priority:    event.Priority,
	}

	if err := s.notifications.Create(ctx, row); err != nil {
		return err
	}

	metrics.RecordFanoutRows(ctx, 1, string(event.Type))

	s.pushTo(ctx, userID, event)
	return nil
}

func (s *FanoutService) pushTo(ctx context.Context, recipientID int64, event Event) {
	recipient, err := s.users.GetByPublicID(ctx, recipientID)
	if err != nil {
		logger.Logger.Warn("Push skipped: recipient lookup failed",
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
		return
	}

	if len(recipient.FCMTokens) == 0 {
		return
	}

	data := make(map[string]string, len(event.Payload)+1)
	data["type"] = string(event.Type)
	for k, v := range event.Payload {
		if str, ok := v.(string); ok {
			data[k] = str
		}
	}

	s.pusher.SendToTokens(ctx, recipient.FCMTokens, push.Message{
		Title:        event.Title,
		Body:         event.Message,
		Data:         data,
		HighPriority: event.Priority == model.NotificationPriorityHigh,
	})
}

// fcmPusher 生产实现，直接走 pkg/push
type fcmPusher struct{}

func (fcmPusher) SendToTokens(ctx context.Context, tokens []string, msg push.Message) int {
	return push.SendToTokens(ctx, tokens, msg)
}
