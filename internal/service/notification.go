package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"PillSync/internal/model"
	"PillSync/internal/repository"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/storage/database"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = NewNotificationService(repository.NewNotificationStore(database.DB()))
	})

	return notificationService
}

func NewNotificationService(notifications repository.NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

type NotificationService struct {
	notifications repository.NotificationStore
}

// List 当前用户收到的通知，新的在前
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.NotificationItem, error) {
	uid, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	notifications, err := s.notifications.ListByRecipient(ctx, uid, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.NotificationItem, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		items = append(items, model.NotificationItem{
			NotificationID: strconv.FormatInt(n.ID, 10),
			Type:           string(n.Type),
			Title:          n.Title,
			Message:        n.Message,
			Payload:        map[string]interface{}(n.Payload),
			Priority:       string(n.Priority),
			Read:           n.Read,
			CreatedAt:      n.CreatedAt,
		})
	}

	return items, nil
}

// MarkRead 标记已读，只能标自己的
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	uid, err := parsePublicID(userID)
	if err != nil {
		return err
	}

	nid, err := strconv.ParseInt(notificationID, 10, 64)
	if err != nil || nid <= 0 {
		return pkgerrors.NotificationNotFound
	}

	if err := s.notifications.MarkRead(ctx, uid, nid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.NotificationNotFound
		}
		return err
	}

	return nil
}
