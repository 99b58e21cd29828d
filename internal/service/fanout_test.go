package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PillSync/internal/model"
	"PillSync/internal/repository"
)

type memNotificationStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    []model.Notification
	failFor map[int64]bool // 指定 recipient 的落库失败
}

func (s *memNotificationStore) Create(_ context.Context, notification *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFor[notification.RecipientID] {
		return fmt.Errorf("insert failed for recipient %d", notification.RecipientID)
	}

	s.nextID++
	notification.ID = s.nextID
	s.rows = append(s.rows, *notification)
	return nil
}

func (s *memNotificationStore) ListByRecipient(_ context.Context, recipientID int64, unreadOnly bool, _ int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Notification
	for _, n := range s.rows {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *memNotificationStore) MarkRead(_ context.Context, recipientID, notificationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID == notificationID && s.rows[i].RecipientID == recipientID {
			s.rows[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func missedEvent() Event {
	return Event{
		Type:     model.NotificationTypeMissedReminder,
		Priority: model.NotificationPriorityHigh,
		Title:    "Missed dose",
		Message:  "Paracetamol was not taken",
		Payload:  model.JSONB{"reminder_id": "9001"},
	}
}

func TestNotifyFansOutToAllCaregivers(t *testing.T) {
	users := newMemUserStore(
		&model.User{PublicID: 100, Timezone: "UTC", Caregivers: model.Int64List{201, 202}},
		&model.User{PublicID: 201, FCMTokens: model.StringList{"token-a"}},
		&model.User{PublicID: 202, FCMTokens: model.StringList{"token-b", "token-c"}},
	)
	notifications := &memNotificationStore{}
	pusher := &fakePusher{}

	svc := NewFanoutService(users, notifications, pusher)

	notified, err := svc.Notify(context.Background(), 100, missedEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, notified)

	require.Len(t, notifications.rows, 2)
	for _, row := range notifications.rows {
		assert.Equal(t, int64(100), row.SubjectID)
		assert.Equal(t, model.NotificationTypeMissedReminder, row.Type)
		assert.Equal(t, model.NotificationPriorityHigh, row.Priority)
	}

	// 两个看护人各推一次
	assert.Len(t, pusher.sent, 2)
	for _, msg := range pusher.sent {
		assert.True(t, msg.HighPriority)
		assert.Equal(t, "9001", msg.Data["reminder_id"])
	}
}

func TestNotifyPartialPersistFailure(t *testing.T) {
	users := newMemUserStore(
		&model.User{PublicID: 100, Caregivers: model.Int64List{201, 202}},
		&model.User{PublicID: 201},
		&model.User{PublicID: 202},
	)
	notifications := &memNotificationStore{failFor: map[int64]bool{201: true}}

	svc := NewFanoutService(users, notifications, &fakePusher{})

	// 一条落库失败不拖垮整次扇出
	notified, err := svc.Notify(context.Background(), 100, missedEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	require.Len(t, notifications.rows, 1)
	assert.Equal(t, int64(202), notifications.rows[0].RecipientID)
}

func TestNotifyAllPersistFailed(t *testing.T) {
	users := newMemUserStore(
		&model.User{PublicID: 100, Caregivers: model.Int64List{201}},
		&model.User{PublicID: 201},
	)
	notifications := &memNotificationStore{failFor: map[int64]bool{201: true}}

	svc := NewFanoutService(users, notifications, &fakePusher{})

	notified, err := svc.Notify(context.Background(), 100, missedEvent())
	assert.Error(t, err)
	assert.Zero(t, notified)
}

func TestNotifyWithoutCaregivers(t *testing.T) {
	users := newMemUserStore(&model.User{PublicID: 100})
	notifications := &memNotificationStore{}

	svc := NewFanoutService(users, notifications, &fakePusher{})

	notified, err := svc.Notify(context.Background(), 100, missedEvent())
	require.NoError(t, err)
	assert.Zero(t, notified)
	assert.Empty(t, notifications.rows)
}

func TestNotifySelf(t *testing.T) {
	users := newMemUserStore(&model.User{PublicID: 100, FCMTokens: model.StringList{"token-self"}})
	notifications := &memNotificationStore{}
	pusher := &fakePusher{}

	svc := NewFanoutService(users, notifications, pusher)

	event := Event{
		Type:     model.NotificationTypeReminderDue,
		Priority: model.NotificationPriorityNormal,
		Title:    "Time to take Paracetamol",
		Message:  "500mg, scheduled for 09:00",
	}
	require.NoError(t, svc.NotifySelf(context.Background(), 100, event))

	require.Len(t, notifications.rows, 1)
	assert.Equal(t, int64(100), notifications.rows[0].RecipientID)
	assert.Equal(t, int64(100), notifications.rows[0].SubjectID)

	require.Len(t, pusher.sent, 1)
	assert.False(t, pusher.sent[0].HighPriority)
}

func TestPushSkippedWhenRecipientHasNoTokens(t *testing.T) {
	users := newMemUserStore(
		&model.User{PublicID: 100, Caregivers: model.Int64List{201}},
		&model.User{PublicID: 201}, // 没注册过设备
	)
	notifications := &memNotificationStore{}
	pusher := &fakePusher{}

	svc := NewFanoutService(users, notifications, pusher)

	notified, err := svc.Notify(context.Background(), 100, missedEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	assert.Empty(t, pusher.sent)
}
