package service

import (
	"context"
	"sync"

	"PillSync/internal/repository"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/storage/database"
)

const maxFCMTokenLength = 4096

var (
	userService *UserService
	userOnce    sync.Once
)

func User() *UserService {
	userOnce.Do(func() {
		userService = NewUserService(repository.NewUserStore(database.DB()))
	})

	return userService
}

func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

type UserService struct {
	users repository.UserStore
}

// RegisterFCMToken 注册设备推送 token，重复注册幂等
func (s *UserService) RegisterFCMToken(ctx context.Context, userID, token string) error {
	uid, err := parsePublicID(userID)
	if err != nil {
		return err
	}

	if token == "" || len(token) > maxFCMTokenLength {
		return pkgerrors.FCMTokenInvalid
	}

	if _, err := s.users.EnsureByPublicID(ctx, uid); err != nil {
		return err
	}

	return s.users.AddFCMToken(ctx, uid, token)
}
