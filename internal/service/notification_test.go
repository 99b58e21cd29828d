package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PillSync/internal/model"
	pkgerrors "PillSync/pkg/errors"
)

func seedNotifications(t *testing.T, store *memNotificationStore, recipientID int64, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, store.Create(context.Background(), &model.Notification{
			Type:        model.NotificationTypeReminderDue,
			RecipientID: recipientID,
			SubjectID:   recipientID,
			Title:       "Time to take Paracetamol",
			Priority:    model.NotificationPriorityNormal,
		}))
	}
}

func TestNotificationListAndMarkRead(t *testing.T) {
	store := &memNotificationStore{}
	svc := NewNotificationService(store)
	ctx := context.Background()

	seedNotifications(t, store, 100, 3)
	seedNotifications(t, store, 999, 1) // 别人的通知不可见

	items, err := svc.List(ctx, "100", false, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NoError(t, svc.MarkRead(ctx, "100", items[0].NotificationID))

	unread, err := svc.List(ctx, "100", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)
}

func TestNotificationMarkReadScopedToRecipient(t *testing.T) {
	store := &memNotificationStore{}
	svc := NewNotificationService(store)
	ctx := context.Background()

	seedNotifications(t, store, 999, 1)

	items, err := svc.List(ctx, "999", false, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// 不是自己的通知标不了
	assert.ErrorIs(t, svc.MarkRead(ctx, "100", items[0].NotificationID), pkgerrors.NotificationNotFound)

	assert.ErrorIs(t, svc.MarkRead(ctx, "100", "not-a-number"), pkgerrors.NotificationNotFound)
}
