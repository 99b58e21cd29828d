package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"PillSync/config"
	"PillSync/internal/cache"
	"PillSync/internal/model"
	"PillSync/internal/repository"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/logger"
	"PillSync/pkg/metrics"
	"PillSync/pkg/ocr"
	"PillSync/pkg/photo"
	"PillSync/pkg/snowflake"
	"PillSync/storage/database"
	"PillSync/storage/mq"
)

// api 中的 user_id / reminder_id 都是 public_id

// OccurrenceMarks occurrence 级别的一次性标记（redis SETNX），CAS 之外的第二道闸
type OccurrenceMarks interface {
	TryMarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error)
	UnmarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) error
	TryMarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error)
	UnmarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) error
}

// EscalationPublisher 投递到 MQ 的发布面
type EscalationPublisher interface {
	PublishMissed(msg model.MissedReminderMessage) error
	PublishDue(msg model.DueReminderMessage) error
}

// PhotoStore 照片上传面
type PhotoStore interface {
	Upload(ctx context.Context, userID, reminderID int64, data []byte) (string, error)
}

// Recognizer OCR 识别面
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) string
}

// DueOutcome EvaluateDue 对单个提醒的处理结果
type DueOutcome int

const (
	OutcomeNone     DueOutcome = iota // 无需动作，或已被并发方处理
	OutcomeDueAlert                   // 发出了到点提醒
	OutcomeMissed                     // 判定漏服并发出升级
)

var (
	reminderService *ReminderService
	reminderOnce    sync.Once
)

// Reminder 生产环境单例
func Reminder() *ReminderService {
	reminderOnce.Do(func() {
		db := database.DB()
		reminderService = NewReminderService(
			repository.NewReminderStore(db),
			repository.NewUserStore(db),
			repository.NewVerificationStore(db),
			repository.NewAdherenceStore(db),
			Fanout(),
			redisMarks{},
			mqPublisher{},
			firebasePhotos{},
			restyRecognizer{},
			clock.New(),
		)
	})

	return reminderService
}

func NewReminderService(
	store repository.ReminderStore,
	users repository.UserStore,
	verifications repository.VerificationStore,
	adherence repository.AdherenceStore,
	notifier Notifier,
	marks OccurrenceMarks,
	publisher EscalationPublisher,
	photos PhotoStore,
	recognizer Recognizer,
	clk clock.Clock,
) *ReminderService {
	return &ReminderService{
		store:         store,
		users:         users,
		verifications: verifications,
		adherence:     adherence,
		notifier:      notifier,
		marks:         marks,
		publisher:     publisher,
		photos:        photos,
		recognizer:    recognizer,
		clock:         clk,
		dueWindow:     config.Cfg.DueWindow(),
		missedAfter:   config.Cfg.MissedAfter(),
		snoozeFor:     config.Cfg.SnoozeDuration(),
	}
}

type ReminderService struct {
	store         repository.ReminderStore
	users         repository.UserStore
	verifications repository.VerificationStore
	adherence     repository.AdherenceStore
	notifier      Notifier
	marks         OccurrenceMarks
	publisher     EscalationPublisher
	photos        PhotoStore
	recognizer    Recognizer
	clock         clock.Clock

	dueWindow   time.Duration
	missedAfter time.Duration
	snoozeFor   time.Duration
}

// Create 新建提醒。校验失败直接拒绝，不会落库半成品。
func (s *ReminderService) Create(ctx context.Context, userID string, req model.CreateReminderRequest) (*model.ReminderItem, error) {
	uid, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	freq := model.ReminderFrequency(req.Frequency)
	if !model.IsValidFrequency(freq) {
		return nil, pkgerrors.ReminderFrequencyInvalid
	}

	if freq == model.FrequencyCustom {
		if len(req.CustomDays) == 0 {
			return nil, pkgerrors.ReminderCustomDaysEmpty
		}
		for _, d := range req.CustomDays {
			if d < 0 || d > 6 {
				return nil, pkgerrors.ReminderCustomDaysEmpty
			}
		}
	}

	user, err := s.users.EnsureByPublicID(ctx, uid)
	if err != nil {
		return nil, err
	}

	loc := userLocation(user)
	now := s.clock.Now().In(loc)

	next, err := InitialOccurrence(freq, model.IntList(req.CustomDays), req.ScheduledTime, now)
	if err != nil {
		return nil, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, err
	}

	reminder := &model.Reminder{
		PublicID:        publicID,
		UserID:          uid,
		MedicineName:    req.MedicineName,
		Dosage:          req.Dosage,
		ScheduledTime:   req.ScheduledTime,
		Frequency:       freq,
		CustomDays:      model.IntList(req.CustomDays),
		Status:          model.ReminderStatusPending,
		NextScheduledAt: next,
	}

	if err := s.store.Create(ctx, reminder); err != nil {
		return nil, err
	}

	logger.Logger.Info("Reminder created",
		zap.Int64("reminder_id", publicID),
		zap.Int64("user_id", uid),
		zap.String("frequency", string(freq)),
		zap.Time("next_scheduled_at", next),
	)

	item := toReminderItem(reminder)
	return &item, nil
}

// List 按下一次服药时刻排序返回用户的全部提醒
func (s *ReminderService) List(ctx context.Context, userID string) ([]model.ReminderItem, error) {
	uid, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	reminders, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	items := make([]model.ReminderItem, 0, len(reminders))
	for i := range reminders {
		items = append(items, toReminderItem(&reminders[i]))
	}

	return items, nil
}

// Delete 硬删除提醒
func (s *ReminderService) Delete(ctx context.Context, userID, reminderID string) error {
	uid, err := parsePublicID(userID)
	if err != nil {
		return err
	}

	rid, err := parsePublicID(reminderID)
	if err != nil {
		return pkgerrors.ReminderNotFound
	}

	if err := s.store.Delete(ctx, uid, rid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgerrors.ReminderNotFound
		}
		return err
	}

	return nil
}

// Snooze 贪睡：pending/snoozed -> snoozed，snoozed_until = now + 配置时长。
// 重复贪睡允许，窗口从最后一次贪睡起算。
func (s *ReminderService) Snooze(ctx context.Context, userID, reminderID string) (*model.SnoozeResponse, error) {
	reminder, err := s.getOwned(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}

	if reminder.Status != model.ReminderStatusPending && reminder.Status != model.ReminderStatusSnoozed {
		return nil, pkgerrors.ReminderNotSnoozable
	}

	until := s.clock.Now().Add(s.snoozeFor)

	err = s.store.TransitionCAS(ctx, reminder.ID, reminder.Status, reminder.NextScheduledAt, map[string]interface{}{
		"status":        model.ReminderStatusSnoozed,
		"snoozed_until": until,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, pkgerrors.ReminderStale
		}
		return nil, err
	}

	return &model.SnoozeResponse{
		ReminderID:   strconv.FormatInt(reminder.PublicID, 10),
		Status:       string(model.ReminderStatusSnoozed),
		SnoozedUntil: until,
	}, nil
}

// Verify 服药验证：上传照片、OCR、匹配、落验证记录和依从日志，并推进排程。
// 匹配与否都算服药完成，排程总是前进；mismatch 额外给看护人发 wrong_medicine 高优通知。
func (s *ReminderService) Verify(ctx context.Context, userID, reminderID string, photoBytes []byte) (*model.VerifyResponse, error) {
	if len(photoBytes) == 0 {
		return nil, pkgerrors.VerificationPhotoMissing
	}

	reminder, err := s.getOwned(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}

	photoURL, err := s.photos.Upload(ctx, reminder.UserID, reminder.PublicID, photoBytes)
	if err != nil {
		return nil, err
	}

	// OCR 失败返回空文本，按 mismatch 处理，不打断验证流程
	recognized := s.recognizer.Recognize(ctx, photoBytes)
	matchStatus := MatchMedicine(reminder.MedicineName, recognized)

	record := &model.VerificationRecord{
		ReminderID:     reminder.PublicID,
		UserID:         reminder.UserID,
		MedicineName:   reminder.MedicineName,
		PhotoURL:       photoURL,
		RecognizedText: recognized,
		MatchStatus:    matchStatus,
	}
	if err := s.verifications.Create(ctx, record); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	occurrence := reminder.NextScheduledAt

	next, err := s.advanceFor(ctx, reminder, now)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":            model.ReminderStatusTaken,
		"last_taken_at":     now,
		"snoozed_until":     nil,
		"next_scheduled_at": next,
	}

	err = s.store.TransitionCAS(ctx, reminder.ID, reminder.Status, reminder.NextScheduledAt, updates)
	if errors.Is(err, repository.ErrStale) {
		// 验证和 sweep 赛跑：重读一次再试，用户的确认优先于漏服判定
		fresh, getErr := s.store.GetByPublicID(ctx, reminder.UserID, reminder.PublicID)
		if getErr != nil {
			return nil, pkgerrors.ReminderStale
		}

		occurrence = fresh.NextScheduledAt
		next, err = s.advanceFor(ctx, fresh, now)
		if err != nil {
			return nil, err
		}
		updates["next_scheduled_at"] = next

		err = s.store.TransitionCAS(ctx, fresh.ID, fresh.Status, fresh.NextScheduledAt, updates)
		if errors.Is(err, repository.ErrStale) {
			return nil, pkgerrors.ReminderStale
		}
	}
	if err != nil {
		return nil, err
	}

	logEntry := &model.AdherenceLog{
		ReminderID:   reminder.PublicID,
		UserID:       reminder.UserID,
		MedicineName: reminder.MedicineName,
		Dosage:       reminder.Dosage,
		ScheduledFor: occurrence,
		Outcome:      model.AdherenceOutcomeTaken,
		MatchStatus:  &matchStatus,
	}
	if err := s.adherence.Create(ctx, logEntry); err != nil {
		logger.Logger.Error("Failed to append adherence log", zap.Error(err))
	}

	s.notifyVerification(ctx, reminder, matchStatus, photoURL)

	return &model.VerifyResponse{
		ReminderID:      strconv.FormatInt(reminder.PublicID, 10),
		MatchStatus:     string(matchStatus),
		RecognizedText:  recognized,
		PhotoURL:        photoURL,
		Status:          string(model.ReminderStatusTaken),
		NextScheduledAt: next,
	}, nil
}

// notifyVerification 验证结果的看护人通知，失败只记日志
func (s *ReminderService) notifyVerification(ctx context.Context, reminder *model.Reminder, matchStatus model.MatchStatus, photoURL string) {
	payload := model.JSONB{
		"reminder_id":   strconv.FormatInt(reminder.PublicID, 10),
		"medicine_name": reminder.MedicineName,
		"photo_url":     photoURL,
	}

	var event Event
	if matchStatus == model.MatchStatusMatch {
		event = Event{
			Type:     model.NotificationTypeIntakeConfirmed,
			Priority: model.NotificationPriorityNormal,
			Title:    "Medication taken",
			Message:  reminder.MedicineName + " was verified and taken",
			Payload:  payload,
		}
	} else {
		event = Event{
			Type:     model.NotificationTypeWrongMedicine,
			Priority: model.NotificationPriorityHigh,
			Title:    "Possible wrong medication",
			Message:  "The photographed medication did not match " + reminder.MedicineName,
			Payload:  payload,
		}
	}

	if _, err := s.notifier.Notify(ctx, reminder.UserID, event); err != nil {
		logger.Logger.Warn("Verification fan-out failed",
			zap.Int64("reminder_id", reminder.PublicID),
			zap.Error(err),
		)
	}
}

// EvaluateDue 两条触发路径共用的判定入口。
// CAS 丢失一律视为另一条路径已处理，静默返回 OutcomeNone。
func (s *ReminderService) EvaluateDue(ctx context.Context, reminder *model.Reminder, now time.Time) (DueOutcome, error) {
	// taken/missed 的提醒在新 occurrence 临近时捞回 pending
	if reminder.Status == model.ReminderStatusTaken || reminder.Status == model.ReminderStatusMissed {
		if now.Before(reminder.NextScheduledAt.Add(-s.dueWindow)) {
			return OutcomeNone, nil
		}

		err := s.store.TransitionCAS(ctx, reminder.ID, reminder.Status, reminder.NextScheduledAt, map[string]interface{}{
			"status":        model.ReminderStatusPending,
			"snoozed_until": nil,
		})
		if err != nil {
			if errors.Is(err, repository.ErrStale) {
				return OutcomeNone, nil
			}
			return OutcomeNone, err
		}

		reminder.Status = model.ReminderStatusPending
		reminder.SnoozedUntil = nil
	}

	// 漏服判定优先：过点超过阈值，推进排程并升级
	if now.Sub(reminder.NextScheduledAt) > s.missedAfter {
		return s.escalateMissed(ctx, reminder, now)
	}

	// 到点判定
	switch reminder.Status {
	case model.ReminderStatusPending:
		sinceScheduled := now.Sub(reminder.NextScheduledAt)
		if sinceScheduled >= -s.dueWindow && sinceScheduled <= s.dueWindow {
			return s.alertDue(ctx, reminder, reminder.NextScheduledAt)
		}

	case model.ReminderStatusSnoozed:
		if reminder.SnoozedUntil != nil && !now.Before(*reminder.SnoozedUntil) {
			// 以 snoozed_until 作为标记时刻，每次贪睡到期各提醒一次
			return s.alertDue(ctx, reminder, *reminder.SnoozedUntil)
		}
	}

	return OutcomeNone, nil
}

// escalateMissed 漏服：CAS 赢家推进排程、落依从日志、恰好一次发布升级消息
func (s *ReminderService) escalateMissed(ctx context.Context, reminder *model.Reminder, now time.Time) (DueOutcome, error) {
	occurrence := reminder.NextScheduledAt

	next, err := s.advanceFor(ctx, reminder, now)
	if err != nil {
		return OutcomeNone, err
	}

	err = s.store.TransitionCAS(ctx, reminder.ID, reminder.Status, occurrence, map[string]interface{}{
		"status":            model.ReminderStatusMissed,
		"snoozed_until":     nil,
		"next_scheduled_at": next,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			// 另一条路径（或用户的验证）抢先了
			return OutcomeNone, nil
		}
		return OutcomeNone, err
	}

	logEntry := &model.AdherenceLog{
		ReminderID:   reminder.PublicID,
		UserID:       reminder.UserID,
		MedicineName: reminder.MedicineName,
		Dosage:       reminder.Dosage,
		ScheduledFor: occurrence,
		Outcome:      model.AdherenceOutcomeMissed,
	}
	if err := s.adherence.Create(ctx, logEntry); err != nil {
		logger.Logger.Error("Failed to append adherence log", zap.Error(err))
	}

	// redis occurrence 标记是 CAS 之外的第二道闸，崩溃重放时兜底
	first, err := s.marks.TryMarkMissedEscalated(ctx, reminder.PublicID, occurrence)
	if err != nil {
		return OutcomeNone, err
	}
	if !first {
		return OutcomeNone, nil
	}

	messageID, err := newMessageID("missed")
	if err != nil {
		return OutcomeNone, err
	}

	msg := model.MissedReminderMessage{
		MessageID:    messageID,
		ReminderID:   reminder.PublicID,
		UserID:       reminder.UserID,
		MedicineName: reminder.MedicineName,
		Dosage:       reminder.Dosage,
		ScheduledAt:  occurrence.Format(time.RFC3339),
		MissedAt:     now.Format(time.RFC3339),
	}

	if err := s.publisher.PublishMissed(msg); err != nil {
		// 发布失败回滚标记，下一个 tick 重试
		if unmarkErr := s.marks.UnmarkMissedEscalated(ctx, reminder.PublicID, occurrence); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark missed escalation", zap.Error(unmarkErr))
		}
		return OutcomeNone, err
	}

	metrics.RecordMissedEscalation(ctx)

	logger.Logger.Info("Missed dose escalated",
		zap.Int64("reminder_id", reminder.PublicID),
		zap.Int64("user_id", reminder.UserID),
		zap.Time("occurrence", occurrence),
	)

	return OutcomeMissed, nil
}

// alertDue 到点提醒：每个标记时刻恰好一次
func (s *ReminderService) alertDue(ctx context.Context, reminder *model.Reminder, markAt time.Time) (DueOutcome, error) {
	first, err := s.marks.TryMarkDueAlerted(ctx, reminder.PublicID, markAt)
	if err != nil {
		return OutcomeNone, err
	}
	if !first {
		return OutcomeNone, nil
	}

	messageID, err := newMessageID("due")
	if err != nil {
		return OutcomeNone, err
	}

	msg := model.DueReminderMessage{
		MessageID:    messageID,
		ReminderID:   reminder.PublicID,
		UserID:       reminder.UserID,
		MedicineName: reminder.MedicineName,
		Dosage:       reminder.Dosage,
		ScheduledAt:  reminder.NextScheduledAt.Format(time.RFC3339),
	}

	if err := s.publisher.PublishDue(msg); err != nil {
		if unmarkErr := s.marks.UnmarkDueAlerted(ctx, reminder.PublicID, markAt); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark due alert", zap.Error(unmarkErr))
		}
		return OutcomeNone, err
	}

	return OutcomeDueAlert, nil
}

// ListDueCandidates 给触发路径用：排程时刻已进入窗口的提醒
func (s *ReminderService) ListDueCandidates(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	return s.store.ListDueCandidates(ctx, now.Add(s.dueWindow))
}

// ListForUser 会话 ticker 用，原始模型
func (s *ReminderService) ListForUser(ctx context.Context, userID int64) ([]model.Reminder, error) {
	return s.store.ListByUser(ctx, userID)
}

// Now 暴露注入的时钟给触发路径
func (s *ReminderService) Now() time.Time {
	return s.clock.Now()
}

// advanceFor 在用户时区里推进排程
func (s *ReminderService) advanceFor(ctx context.Context, reminder *model.Reminder, now time.Time) (time.Time, error) {
	loc := time.UTC
	if user, err := s.users.GetByPublicID(ctx, reminder.UserID); err == nil {
		loc = userLocation(user)
	}

	return Advance(reminder.Frequency, reminder.CustomDays, reminder.NextScheduledAt.In(loc), now.In(loc))
}

func (s *ReminderService) getOwned(ctx context.Context, userID, reminderID string) (*model.Reminder, error) {
	uid, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	rid, err := parsePublicID(reminderID)
	if err != nil {
		return nil, pkgerrors.ReminderNotFound
	}

	reminder, err := s.store.GetByPublicID(ctx, uid, rid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.ReminderNotFound
		}
		return nil, err
	}

	return reminder, nil
}

func parsePublicID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, pkgerrors.InvalidUserID
	}
	return parsed, nil
}

func userLocation(user *model.User) *time.Location {
	if user.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func toReminderItem(r *model.Reminder) model.ReminderItem {
	return model.ReminderItem{
		ReminderID:      strconv.FormatInt(r.PublicID, 10),
		MedicineName:    r.MedicineName,
		Dosage:          r.Dosage,
		ScheduledTime:   r.ScheduledTime,
		Frequency:       string(r.Frequency),
		CustomDays:      []int(r.CustomDays),
		Status:          string(r.Status),
		NextScheduledAt: r.NextScheduledAt,
		SnoozedUntil:    r.SnoozedUntil,
		LastTakenAt:     r.LastTakenAt,
	}
}

// ========== 生产实现适配 ==========

type redisMarks struct{}

func (redisMarks) TryMarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error) {
	return cache.TryMarkMissedEscalated(ctx, reminderID, scheduledAt)
}

func (redisMarks) UnmarkMissedEscalated(ctx context.Context, reminderID int64, scheduledAt time.Time) error {
	return cache.UnmarkMissedEscalated(ctx, reminderID, scheduledAt)
}

func (redisMarks) TryMarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) (bool, error) {
	return cache.TryMarkDueAlerted(ctx, reminderID, scheduledAt)
}

func (redisMarks) UnmarkDueAlerted(ctx context.Context, reminderID int64, scheduledAt time.Time) error {
	return cache.UnmarkDueAlerted(ctx, reminderID, scheduledAt)
}

type mqPublisher struct{}

func (mqPublisher) PublishMissed(msg model.MissedReminderMessage) error {
	return mq.PublishMessage(mq.NotifyExchange, mq.MissedReminderRouteKey, msg)
}

func (mqPublisher) PublishDue(msg model.DueReminderMessage) error {
	return mq.PublishMessage(mq.NotifyExchange, mq.DueReminderRouteKey, msg)
}

// newMessageID 带场景前缀的消息 ID，消费端幂等检查用
func newMessageID(kind string) (string, error) {
	id, err := snowflake.NextString()
	if err != nil {
		return "", err
	}
	return kind + "-" + id, nil
}

type firebasePhotos struct{}

func (firebasePhotos) Upload(ctx context.Context, userID, reminderID int64, data []byte) (string, error) {
	return photo.Upload(ctx, userID, reminderID, data)
}

type restyRecognizer struct{}

func (restyRecognizer) Recognize(ctx context.Context, image []byte) string {
	return ocr.Recognize(ctx, image)
}
