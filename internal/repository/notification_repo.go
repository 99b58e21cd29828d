package repository

import (
	"context"

	"gorm.io/gorm"

	"PillSync/internal/model"
)

// NotificationStore 通知持久化接口
type NotificationStore interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientID int64, notificationID int64) error
}

type notificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) NotificationStore {
	return &notificationStore{db: db}
}

func (s *notificationStore) Create(ctx context.Context, notification *model.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *notificationStore) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID)

	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []model.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error

	return notifications, err
}

func (s *notificationStore) MarkRead(ctx context.Context, recipientID int64, notificationID int64) error {
	result := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("read", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
