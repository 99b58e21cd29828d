package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"PillSync/config"
	"PillSync/internal/model"
	"PillSync/internal/repository"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/storage/database"
)

var (
	caregiverService *CaregiverService
	caregiverOnce    sync.Once
)

func Caregiver() *CaregiverService {
	caregiverOnce.Do(func() {
		caregiverService = NewCaregiverService(repository.NewUserStore(database.DB()))
	})

	return caregiverService
}

func NewCaregiverService(users repository.UserStore) *CaregiverService {
	return &CaregiverService{users: users}
}

type CaregiverService struct {
	users repository.UserStore
}

// List 当前用户的看护人
func (s *CaregiverService) List(ctx context.Context, userID string) ([]model.CaregiverItem, error) {
	uid, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.EnsureByPublicID(ctx, uid)
	if err != nil {
		return nil, err
	}

	items := make([]model.CaregiverItem, 0, len(user.Caregivers))
	for _, caregiverID := range user.Caregivers {
		item := model.CaregiverItem{
			CaregiverID: strconv.FormatInt(caregiverID, 10),
		}

		// 名字尽力而为，看护人行不存在也照样列出
		if caregiver, err := s.users.GetByPublicID(ctx, caregiverID); err == nil {
			item.Name = caregiver.Name
		}

		items = append(items, item)
	}

	return items, nil
}

// Add 添加看护人：对方必须是已存在的用户，不能加自己，数量有上限
func (s *CaregiverService) Add(ctx context.Context, userID string, req model.AddCaregiverRequest) error {
	uid, err := parsePublicID(userID)
	if err != nil {
		return err
	}

	caregiverID, err := parsePublicID(req.CaregiverID)
	if err != nil {
		return pkgerrors.CaregiverNotFound
	}

	if caregiverID == uid {
		return pkgerrors.CaregiverSelfRef
	}

	if _, err := s.users.GetByPublicID(ctx, caregiverID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.CaregiverNotFound
		}
		return err
	}

	user, err := s.users.EnsureByPublicID(ctx, uid)
	if err != nil {
		return err
	}

	for _, existing := range user.Caregivers {
		if existing == caregiverID {
			return nil // 幂等
		}
	}

	if len(user.Caregivers) >= config.Cfg.ReminderMaxCaregivers {
		return pkgerrors.CaregiverLimitReached
	}

	return s.users.UpdateCaregivers(ctx, uid, append(user.Caregivers, caregiverID))
}

// Remove 移除看护人
func (s *CaregiverService) Remove(ctx context.Context, userID, caregiverID string) error {
	uid, err := parsePublicID(userID)
	if err != nil {
		return err
	}

	cid, err := parsePublicID(caregiverID)
	if err != nil {
		return pkgerrors.CaregiverNotFound
	}

	user, err := s.users.GetByPublicID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.CaregiverNotFound
		}
		return err
	}

	remaining := make(model.Int64List, 0, len(user.Caregivers))
	found := false
	for _, existing := range user.Caregivers {
		if existing == cid {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}

	if !found {
		return pkgerrors.CaregiverNotFound
	}

	return s.users.UpdateCaregivers(ctx, uid, remaining)
}
