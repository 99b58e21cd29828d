package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PillSync/internal/model"
	"PillSync/internal/repository"
	"PillSync/pkg/push"
)

// ========== 内存版 ReminderStore，CAS 语义与 gorm 实现一致 ==========

type memReminderStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Reminder

	failCASOnce bool // 下一次 TransitionCAS 直接返回 ErrStale，模拟并发丢失
}

func newMemReminderStore() *memReminderStore {
	return &memReminderStore{rows: make(map[int64]*model.Reminder)}
}

func (s *memReminderStore) Create(_ context.Context, reminder *model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	reminder.ID = s.nextID
	cp := *reminder
	s.rows[reminder.ID] = &cp
	return nil
}

func (s *memReminderStore) GetByPublicID(_ context.Context, userID, publicID int64) (*model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows {
		if r.UserID == userID && r.PublicID == publicID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memReminderStore) ListByUser(_ context.Context, userID int64) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Reminder
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memReminderStore) ListDueCandidates(_ context.Context, horizon time.Time) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Reminder
	for _, r := range s.rows {
		if !r.NextScheduledAt.After(horizon) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memReminderStore) Delete(_ context.Context, userID, publicID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.rows {
		if r.UserID == userID && r.PublicID == publicID {
			delete(s.rows, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memReminderStore) TransitionCAS(_ context.Context, reminderID int64, expectStatus model.ReminderStatus, expectNextAt time.Time, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCASOnce {
		s.failCASOnce = false
		return repository.ErrStale
	}

	r, ok := s.rows[reminderID]
	if !ok || r.Status != expectStatus || !r.NextScheduledAt.Equal(expectNextAt) {
		return repository.ErrStale
	}

	for key, value := range updates {
		switch key {
		case "status":
			r.Status = value.(model.ReminderStatus)
		case "next_scheduled_at":
			r.NextScheduledAt = value.(time.Time)
		case "snoozed_until":
			if value == nil {
				r.SnoozedUntil = nil
			} else {
				t := value.(time.Time)
				r.SnoozedUntil = &t
			}
		case "last_taken_at":
			t := value.(time.Time)
			r.LastTakenAt = &t
		}
	}

	return nil
}

// snapshot 直接按内部 ID 取一份拷贝，模拟触发路径手里的行快照
func (s *memReminderStore) snapshot(id int64) model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

// ========== 其余协作方的 fake ==========

type memUserStore struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newMemUserStore(users ...*model.User) *memUserStore {
	s := &memUserStore{users: make(map[int64]*model.User)}
	for _, u := range users {
		s.users[u.PublicID] = u
	}
	return s
}

func (s *memUserStore) GetByPublicID(_ context.Context, publicID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[publicID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) EnsureByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	s.mu.Lock()
	if _, ok := s.users[publicID]; !ok {
		s.users[publicID] = &model.User{PublicID: publicID, Timezone: "UTC"}
	}
	s.mu.Unlock()

	return s.GetByPublicID(ctx, publicID)
}

func (s *memUserStore) UpdateCaregivers(_ context.Context, publicID int64, caregivers model.Int64List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[publicID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Caregivers = caregivers
	return nil
}

func (s *memUserStore) AddFCMToken(_ context.Context, publicID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[publicID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range u.FCMTokens {
		if existing == token {
			return nil
		}
	}
	u.FCMTokens = append(u.FCMTokens, token)
	return nil
}

type memVerificationStore struct {
	mu      sync.Mutex
	records []model.VerificationRecord
}

func (s *memVerificationStore) Create(_ context.Context, record *model.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
	return nil
}

func (s *memVerificationStore) ListByReminder(_ context.Context, userID, reminderID int64, _ int) ([]model.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.VerificationRecord
	for _, r := range s.records {
		if r.UserID == userID && r.ReminderID == reminderID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memAdherenceStore struct {
	mu   sync.Mutex
	logs []model.AdherenceLog
}

func (s *memAdherenceStore) Create(_ context.Context, log *model.AdherenceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *memAdherenceStore) ListByUser(_ context.Context, userID int64, _ int) ([]model.AdherenceLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.AdherenceLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

// fakeMarks 进程内版本的 redis SETNX 标记
type fakeMarks struct {
	mu     sync.Mutex
	marked map[string]bool
}

func newFakeMarks() *fakeMarks {
	return &fakeMarks{marked: make(map[string]bool)}
}

func (m *fakeMarks) tryMark(kind string, reminderID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s|%d|%d", kind, reminderID, at.Unix())
	if m.marked[key] {
		return false, nil
	}
	m.marked[key] = true
	return true, nil
}

func (m *fakeMarks) unmark(kind string, reminderID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marked, fmt.Sprintf("%s|%d|%d", kind, reminderID, at.Unix()))
	return nil
}

func (m *fakeMarks) TryMarkMissedEscalated(_ context.Context, reminderID int64, at time.Time) (bool, error) {
	return m.tryMark("missed", reminderID, at)
}

func (m *fakeMarks) UnmarkMissedEscalated(_ context.Context, reminderID int64, at time.Time) error {
	return m.unmark("missed", reminderID, at)
}

func (m *fakeMarks) TryMarkDueAlerted(_ context.Context, reminderID int64, at time.Time) (bool, error) {
	return m.tryMark("due", reminderID, at)
}

func (m *fakeMarks) UnmarkDueAlerted(_ context.Context, reminderID int64, at time.Time) error {
	return m.unmark("due", reminderID, at)
}

type fakePublisher struct {
	mu         sync.Mutex
	missed     []model.MissedReminderMessage
	due        []model.DueReminderMessage
	failMissed bool
}

func (p *fakePublisher) PublishMissed(msg model.MissedReminderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failMissed {
		return fmt.Errorf("broker unavailable")
	}
	p.missed = append(p.missed, msg)
	return nil
}

func (p *fakePublisher) PublishDue(msg model.DueReminderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.due = append(p.due, msg)
	return nil
}

type notifiedEvent struct {
	subjectID int64
	event     Event
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

func (n *fakeNotifier) Notify(_ context.Context, subjectID int64, event Event) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{subjectID: subjectID, event: event})
	return 1, nil
}

func (n *fakeNotifier) NotifySelf(_ context.Context, userID int64, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{subjectID: userID, event: event})
	return nil
}

type fakePhotos struct{}

func (fakePhotos) Upload(_ context.Context, userID, reminderID int64, _ []byte) (string, error) {
	return fmt.Sprintf("gs://test-bucket/verifications/%d/%d/photo.jpg", userID, reminderID), nil
}

type fakeRecognizer struct {
	text string
}

func (r fakeRecognizer) Recognize(_ context.Context, _ []byte) string {
	return r.text
}

type fakePusher struct {
	mu   sync.Mutex
	sent []push.Message
}

func (p *fakePusher) SendToTokens(_ context.Context, tokens []string, msg push.Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return len(tokens)
}
