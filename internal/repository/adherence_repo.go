package repository

import (
	"context"

	"gorm.io/gorm"

	"PillSync/internal/model"
)

// AdherenceStore 依从性日志持久化接口，只追加
type AdherenceStore interface {
	Create(ctx context.Context, log *model.AdherenceLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.AdherenceLog, error)
}

type adherenceStore struct {
	db *gorm.DB
}

func NewAdherenceStore(db *gorm.DB) AdherenceStore {
	return &adherenceStore{db: db}
}

func (s *adherenceStore) Create(ctx context.Context, log *model.AdherenceLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

func (s *adherenceStore) ListByUser(ctx context.Context, userID int64, limit int) ([]model.AdherenceLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []model.AdherenceLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error

	return logs, err
}
