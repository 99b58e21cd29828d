package model

import "time"

// AdherenceOutcome 服药结果枚举
type AdherenceOutcome string

const (
	AdherenceOutcomeTaken  AdherenceOutcome = "taken"
	AdherenceOutcomeMissed AdherenceOutcome = "missed"
)

// AdherenceLog 服药依从性审计日志，只追加不修改
type AdherenceLog struct {
	BaseModel
	ReminderID   int64            `gorm:"not null;index:idx_adherence_reminder" json:"reminder_id"`
	UserID       int64            `gorm:"not null;index:idx_adherence_user" json:"user_id"`
	MedicineName string           `gorm:"type:varchar(128);not null" json:"medicine_name"`
	Dosage       string           `gorm:"type:varchar(64);not null;default:''" json:"dosage"`
	ScheduledFor time.Time        `gorm:"type:timestamptz;not null" json:"scheduled_for"` // 本次 occurrence 的排程时刻
	Outcome      AdherenceOutcome `gorm:"type:varchar(16);not null" json:"outcome"`
	MatchStatus  *MatchStatus     `gorm:"type:varchar(16)" json:"match_status,omitempty"` // 仅 taken 时有值
}

// TableName 指定表名
func (AdherenceLog) TableName() string {
	return "adherence_logs"
}
