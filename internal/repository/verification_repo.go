package repository

import (
	"context"

	"gorm.io/gorm"

	"PillSync/internal/model"
)

// VerificationStore 验证记录持久化接口，只追加
type VerificationStore interface {
	Create(ctx context.Context, record *model.VerificationRecord) error
	ListByReminder(ctx context.Context, userID int64, reminderID int64, limit int) ([]model.VerificationRecord, error)
}

type verificationStore struct {
	db *gorm.DB
}

func NewVerificationStore(db *gorm.DB) VerificationStore {
	return &verificationStore{db: db}
}

func (s *verificationStore) Create(ctx context.Context, record *model.VerificationRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *verificationStore) ListByReminder(ctx context.Context, userID int64, reminderID int64, limit int) ([]model.VerificationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []model.VerificationRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND reminder_id = ?", userID, reminderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error

	return records, err
}
