package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"PillSync/internal/model"
)

// ErrStale 条件更新未命中：提醒已被另一条触发路径并发修改，调用方视为"别人已处理"
var ErrStale = errors.New("reminder transition lost: row was updated concurrently")

// ErrNotFound 行不存在
var ErrNotFound = errors.New("record not found")

// ReminderStore 提醒持久化接口，引擎只依赖这个最小面
type ReminderStore interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	GetByPublicID(ctx context.Context, userID int64, publicID int64) (*model.Reminder, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reminder, error)
	// ListDueCandidates 返回排程时刻已进入 horizon 的所有提醒（全量用户，sweep 路径）
	ListDueCandidates(ctx context.Context, horizon time.Time) ([]model.Reminder, error)
	Delete(ctx context.Context, userID int64, publicID int64) error

	// TransitionCAS 条件更新：仅当 status 和 next_scheduled_at 仍为期望值时应用 updates。
	// 未命中返回 ErrStale。
	TransitionCAS(ctx context.Context, reminderID int64, expectStatus model.ReminderStatus, expectNextAt time.Time, updates map[string]interface{}) error
}

type reminderStore struct {
	db *gorm.DB
}

func NewReminderStore(db *gorm.DB) ReminderStore {
	return &reminderStore{db: db}
}

func (s *reminderStore) Create(ctx context.Context, reminder *model.Reminder) error {
	return s.db.WithContext(ctx).Create(reminder).Error
}

func (s *reminderStore) GetByPublicID(ctx context.Context, userID int64, publicID int64) (*model.Reminder, error) {
	var reminder model.Reminder
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&reminder).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &reminder, nil
}

func (s *reminderStore) ListByUser(ctx context.Context, userID int64) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("next_scheduled_at ASC").
		Find(&reminders).Error

	return reminders, err
}

func (s *reminderStore) ListDueCandidates(ctx context.Context, horizon time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	// taken/missed 也在候选集里，引擎负责在新 occurrence 到来时把它们捞回 pending
	err := s.db.WithContext(ctx).
		Where("next_scheduled_at <= ?", horizon).
		Order("next_scheduled_at ASC").
		Find(&reminders).Error

	return reminders, err
}

func (s *reminderStore) Delete(ctx context.Context, userID int64, publicID int64) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		Delete(&model.Reminder{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *reminderStore) TransitionCAS(ctx context.Context, reminderID int64, expectStatus model.ReminderStatus, expectNextAt time.Time, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ? AND status = ? AND next_scheduled_at = ?", reminderID, expectStatus, expectNextAt).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}

	return nil
}
