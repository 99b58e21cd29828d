package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PillSync/internal/model"
	pkgerrors "PillSync/pkg/errors"
)

func TestRegisterFCMToken(t *testing.T) {
	users := newMemUserStore(&model.User{PublicID: 100})
	svc := NewUserService(users)
	ctx := context.Background()

	require.NoError(t, svc.RegisterFCMToken(ctx, "100", "device-token-1"))

	// 重复注册幂等
	require.NoError(t, svc.RegisterFCMToken(ctx, "100", "device-token-1"))

	u, err := users.GetByPublicID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"device-token-1"}, u.FCMTokens)
}

func TestRegisterFCMTokenValidation(t *testing.T) {
	users := newMemUserStore(&model.User{PublicID: 100})
	svc := NewUserService(users)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RegisterFCMToken(ctx, "100", ""), pkgerrors.FCMTokenInvalid)
	assert.ErrorIs(t, svc.RegisterFCMToken(ctx, "100", strings.Repeat("x", 5000)), pkgerrors.FCMTokenInvalid)
	assert.ErrorIs(t, svc.RegisterFCMToken(ctx, "-5", "token"), pkgerrors.InvalidUserID)
}
