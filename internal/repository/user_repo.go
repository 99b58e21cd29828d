package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"PillSync/internal/model"
)

// UserStore 用户持久化接口
type UserStore interface {
	GetByPublicID(ctx context.Context, publicID int64) (*model.User, error)
	// EnsureByPublicID 按 JWT subject 懒创建用户行
	EnsureByPublicID(ctx context.Context, publicID int64) (*model.User, error)
	UpdateCaregivers(ctx context.Context, publicID int64, caregivers model.Int64List) error
	AddFCMToken(ctx context.Context, publicID int64, token string) error
}

type userStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &userStore{db: db}
}

func (s *userStore) GetByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *userStore) EnsureByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	user, err := s.GetByPublicID(ctx, publicID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := &model.User{
		PublicID:   publicID,
		Caregivers: model.Int64List{},
		FCMTokens:  model.StringList{},
		Timezone:   "UTC",
	}

	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		// 并发创建时回读即可
		if existing, getErr := s.GetByPublicID(ctx, publicID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	return created, nil
}

func (s *userStore) UpdateCaregivers(ctx context.Context, publicID int64, caregivers model.Int64List) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("public_id = ?", publicID).
		Update("caregivers", caregivers)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *userStore) AddFCMToken(ctx context.Context, publicID int64, token string) error {
	user, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}

	for _, existing := range user.FCMTokens {
		if existing == token {
			return nil // 已注册
		}
	}

	tokens := append(user.FCMTokens, token)

	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("public_id = ?", publicID).
		Update("fcm_tokens", tokens).Error
}
