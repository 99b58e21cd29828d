package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PillSync/internal/model"
	pkgerrors "PillSync/pkg/errors"
)

const testUserID = int64(100)

type engineFixture struct {
	svc       *ReminderService
	store     *memReminderStore
	users     *memUserStore
	verifs    *memVerificationStore
	adherence *memAdherenceStore
	notifier  *fakeNotifier
	marks     *fakeMarks
	publisher *fakePublisher
	clk       clock.FakeClock
}

func newEngineFixture(recognized string) *engineFixture {
	f := &engineFixture{
		store:     newMemReminderStore(),
		users:     newMemUserStore(&model.User{PublicID: testUserID, Timezone: "UTC"}),
		verifs:    &memVerificationStore{},
		adherence: &memAdherenceStore{},
		notifier:  &fakeNotifier{},
		marks:     newFakeMarks(),
		publisher: &fakePublisher{},
		clk:       clock.NewFake(),
	}

	f.clk.Set(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))

	f.svc = &ReminderService{
		store:         f.store,
		users:         f.users,
		verifications: f.verifs,
		adherence:     f.adherence,
		notifier:      f.notifier,
		marks:         f.marks,
		publisher:     f.publisher,
		photos:        fakePhotos{},
		recognizer:    fakeRecognizer{text: recognized},
		clock:         f.clk,
		dueWindow:     2 * time.Minute,
		missedAfter:   30 * time.Minute,
		snoozeFor:     15 * time.Minute,
	}

	return f
}

// seedReminder 直接落一条 pending 提醒，next_scheduled_at 为给定时刻
func (f *engineFixture) seedReminder(t *testing.T, publicID int64, nextAt time.Time) model.Reminder {
	t.Helper()

	reminder := &model.Reminder{
		PublicID:        publicID,
		UserID:          testUserID,
		MedicineName:    "Paracetamol",
		Dosage:          "500mg",
		ScheduledTime:   nextAt.Format("15:04"),
		Frequency:       model.FrequencyDaily,
		Status:          model.ReminderStatusPending,
		NextScheduledAt: nextAt,
	}
	require.NoError(t, f.store.Create(context.Background(), reminder))
	return *reminder
}

func TestCreateReminder(t *testing.T) {
	f := newEngineFixture("")

	item, err := f.svc.Create(context.Background(), "100", model.CreateReminderRequest{
		MedicineName:  "Paracetamol",
		Dosage:        "500mg",
		ScheduledTime: "10:30",
		Frequency:     "daily",
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.ReminderStatusPending), item.Status)
	assert.Equal(t, "daily", item.Frequency)
	// 10:30 还没到，首次 occurrence 排当天
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), item.NextScheduledAt)
	assert.NotEmpty(t, item.ReminderID)
}

func TestCreateReminderValidation(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "100", model.CreateReminderRequest{
		MedicineName: "Paracetamol", ScheduledTime: "10:30", Frequency: "hourly",
	})
	assert.ErrorIs(t, err, pkgerrors.ReminderFrequencyInvalid)

	_, err = f.svc.Create(ctx, "100", model.CreateReminderRequest{
		MedicineName: "Paracetamol", ScheduledTime: "10:30", Frequency: "custom",
	})
	assert.ErrorIs(t, err, pkgerrors.ReminderCustomDaysEmpty)

	_, err = f.svc.Create(ctx, "100", model.CreateReminderRequest{
		MedicineName: "Paracetamol", ScheduledTime: "10:30", Frequency: "custom", CustomDays: []int{7},
	})
	assert.ErrorIs(t, err, pkgerrors.ReminderCustomDaysEmpty)

	_, err = f.svc.Create(ctx, "abc", model.CreateReminderRequest{
		MedicineName: "Paracetamol", ScheduledTime: "10:30", Frequency: "daily",
	})
	assert.ErrorIs(t, err, pkgerrors.InvalidUserID)
}

func TestEvaluateDuePendingWithinWindow(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9001, now)

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDueAlert, outcome)
	require.Len(t, f.publisher.due, 1)
	assert.Equal(t, int64(9001), f.publisher.due[0].ReminderID)

	// 同一 occurrence 再评估一次：标记已存在，不重复发
	snapshot = f.store.snapshot(seeded.ID)
	outcome, err = f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)
	assert.Len(t, f.publisher.due, 1)
}

func TestEvaluateDueOutsideWindowDoesNothing(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9002, now.Add(10*time.Minute))

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)
	assert.Empty(t, f.publisher.due)
	assert.Empty(t, f.publisher.missed)
}

func TestEvaluateDueMissedEscalation(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()
	occurrence := now.Add(-31 * time.Minute)

	seeded := f.seedReminder(t, 9003, occurrence)

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissed, outcome)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusMissed, stored.Status)
	// daily：排程推进到明天同一时刻
	assert.Equal(t, occurrence.AddDate(0, 0, 1), stored.NextScheduledAt)

	require.Len(t, f.publisher.missed, 1)
	assert.Equal(t, int64(9003), f.publisher.missed[0].ReminderID)
	assert.Equal(t, occurrence.Format(time.RFC3339), f.publisher.missed[0].ScheduledAt)

	require.Len(t, f.adherence.logs, 1)
	assert.Equal(t, model.AdherenceOutcomeMissed, f.adherence.logs[0].Outcome)
	assert.True(t, f.adherence.logs[0].ScheduledFor.Equal(occurrence))
}

func TestEvaluateDueConcurrentEvaluatorLosesCAS(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9004, now.Add(-31*time.Minute))

	// 两条触发路径各拿一份相同的快照
	first := f.store.snapshot(seeded.ID)
	second := f.store.snapshot(seeded.ID)

	outcome, err := f.svc.EvaluateDue(ctx, &first, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissed, outcome)

	// 输家的 CAS 落空，静默返回，不重复升级
	outcome, err = f.svc.EvaluateDue(ctx, &second, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)

	assert.Len(t, f.publisher.missed, 1)
	assert.Len(t, f.adherence.logs, 1)
}

func TestEvaluateDueSnoozedRealert(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9005, now.Add(-10*time.Minute))
	until := now.Add(-1 * time.Minute)
	require.NoError(t, f.store.TransitionCAS(ctx, seeded.ID, model.ReminderStatusPending, seeded.NextScheduledAt, map[string]interface{}{
		"status":        model.ReminderStatusSnoozed,
		"snoozed_until": until,
	}))

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDueAlert, outcome)
	assert.Len(t, f.publisher.due, 1)
}

func TestEvaluateDueSnoozedPastMissedThreshold(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()
	occurrence := now.Add(-40 * time.Minute)

	seeded := f.seedReminder(t, 9006, occurrence)
	until := now.Add(-25 * time.Minute)
	require.NoError(t, f.store.TransitionCAS(ctx, seeded.ID, model.ReminderStatusPending, occurrence, map[string]interface{}{
		"status":        model.ReminderStatusSnoozed,
		"snoozed_until": until,
	}))

	// 贪睡挡不住漏服判定：过点超过阈值照样升级
	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissed, outcome)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusMissed, stored.Status)
	assert.Nil(t, stored.SnoozedUntil)
}

func TestEvaluateDueReactivatesTakenWhenNextOccurrenceNears(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9007, now)
	require.NoError(t, f.store.TransitionCAS(ctx, seeded.ID, model.ReminderStatusPending, now, map[string]interface{}{
		"status": model.ReminderStatusTaken,
	}))

	// 新 occurrence 进入窗口，taken 捞回 pending 并直接到点提醒
	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDueAlert, outcome)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusPending, stored.Status)
}

func TestEvaluateDueTakenStaysUntilWindow(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9008, now.Add(6*time.Hour))
	require.NoError(t, f.store.TransitionCAS(ctx, seeded.ID, model.ReminderStatusPending, now.Add(6*time.Hour), map[string]interface{}{
		"status": model.ReminderStatusTaken,
	}))

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusTaken, stored.Status)
}

func TestEvaluateDuePublishFailureReleasesMark(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()
	occurrence := now.Add(-31 * time.Minute)

	seeded := f.seedReminder(t, 9009, occurrence)
	f.publisher.failMissed = true

	snapshot := f.store.snapshot(seeded.ID)
	outcome, err := f.svc.EvaluateDue(ctx, &snapshot, now)
	require.Error(t, err)
	assert.Equal(t, OutcomeNone, outcome)

	// 标记已回滚，重放时还能抢到
	first, markErr := f.marks.TryMarkMissedEscalated(ctx, 9009, occurrence)
	require.NoError(t, markErr)
	assert.True(t, first)
}

func TestSnooze(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9010, now)

	resp, err := f.svc.Snooze(ctx, "100", "9010")
	require.NoError(t, err)
	assert.Equal(t, string(model.ReminderStatusSnoozed), resp.Status)
	assert.True(t, resp.SnoozedUntil.Equal(now.Add(15*time.Minute)))

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusSnoozed, stored.Status)
	require.NotNil(t, stored.SnoozedUntil)

	// 重复贪睡允许，窗口从最后一次起算
	f.clk.Add(5 * time.Minute)
	resp, err = f.svc.Snooze(ctx, "100", "9010")
	require.NoError(t, err)
	assert.True(t, resp.SnoozedUntil.Equal(now.Add(20*time.Minute)))
}

func TestSnoozeRejectsTerminalStatus(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9011, now)
	require.NoError(t, f.store.TransitionCAS(ctx, seeded.ID, model.ReminderStatusPending, now, map[string]interface{}{
		"status": model.ReminderStatusTaken,
	}))

	_, err := f.svc.Snooze(ctx, "100", "9011")
	assert.ErrorIs(t, err, pkgerrors.ReminderNotSnoozable)
}

func TestSnoozeUnknownReminder(t *testing.T) {
	f := newEngineFixture("")

	_, err := f.svc.Snooze(context.Background(), "100", "404404")
	assert.ErrorIs(t, err, pkgerrors.ReminderNotFound)
}

func TestVerifyMatch(t *testing.T) {
	f := newEngineFixture("PARACETAMOL 500mg tablets")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9012, now)

	resp, err := f.svc.Verify(ctx, "100", "9012", []byte("jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, string(model.MatchStatusMatch), resp.MatchStatus)
	assert.Equal(t, string(model.ReminderStatusTaken), resp.Status)
	assert.Equal(t, now.AddDate(0, 0, 1), resp.NextScheduledAt)
	assert.Contains(t, resp.PhotoURL, "gs://")

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusTaken, stored.Status)
	require.NotNil(t, stored.LastTakenAt)

	require.Len(t, f.verifs.records, 1)
	assert.Equal(t, model.MatchStatusMatch, f.verifs.records[0].MatchStatus)

	require.Len(t, f.adherence.logs, 1)
	assert.Equal(t, model.AdherenceOutcomeTaken, f.adherence.logs[0].Outcome)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, model.NotificationTypeIntakeConfirmed, f.notifier.events[0].event.Type)
	assert.Equal(t, model.NotificationPriorityNormal, f.notifier.events[0].event.Priority)
}

func TestVerifyMismatchStillAdvancesSchedule(t *testing.T) {
	f := newEngineFixture("some unrelated box")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9013, now)

	resp, err := f.svc.Verify(ctx, "100", "9013", []byte("jpeg-bytes"))
	require.NoError(t, err)

	// mismatch 只是告警信号，不阻止服药完成
	assert.Equal(t, string(model.MatchStatusMismatch), resp.MatchStatus)
	assert.Equal(t, string(model.ReminderStatusTaken), resp.Status)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusTaken, stored.Status)
	assert.Equal(t, now.AddDate(0, 0, 1), stored.NextScheduledAt)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, model.NotificationTypeWrongMedicine, f.notifier.events[0].event.Type)
	assert.Equal(t, model.NotificationPriorityHigh, f.notifier.events[0].event.Priority)
}

func TestVerifyRetriesOnceWhenRacingSweep(t *testing.T) {
	f := newEngineFixture("PARACETAMOL")
	ctx := context.Background()
	now := f.clk.Now()

	seeded := f.seedReminder(t, 9014, now)
	f.store.failCASOnce = true

	// 第一次 CAS 落空后重读重试，用户确认优先于并发判定
	resp, err := f.svc.Verify(ctx, "100", "9014", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, string(model.ReminderStatusTaken), resp.Status)

	stored := f.store.snapshot(seeded.ID)
	assert.Equal(t, model.ReminderStatusTaken, stored.Status)
}

func TestVerifyRequiresPhoto(t *testing.T) {
	f := newEngineFixture("")

	_, err := f.svc.Verify(context.Background(), "100", "9015", nil)
	assert.ErrorIs(t, err, pkgerrors.VerificationPhotoMissing)
}

func TestDeleteReminder(t *testing.T) {
	f := newEngineFixture("")
	ctx := context.Background()

	f.seedReminder(t, 9016, f.clk.Now())

	require.NoError(t, f.svc.Delete(ctx, "100", "9016"))
	assert.ErrorIs(t, f.svc.Delete(ctx, "100", "9016"), pkgerrors.ReminderNotFound)
}
