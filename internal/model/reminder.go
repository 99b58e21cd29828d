package model

import "time"

// ReminderStatus 提醒状态枚举
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending" // 等待服药
	ReminderStatusSnoozed ReminderStatus = "snoozed" // 用户贪睡，稍后再提醒
	ReminderStatusTaken   ReminderStatus = "taken"   // 本次已确认服药
	ReminderStatusMissed  ReminderStatus = "missed"  // 本次漏服
)

// ReminderFrequency 服药频率枚举
type ReminderFrequency string

const (
	FrequencyDaily         ReminderFrequency = "daily"
	FrequencyAlternateDays ReminderFrequency = "alternate_days"
	FrequencyCustom        ReminderFrequency = "custom" // 指定星期几
)

// Reminder 服药提醒模型
type Reminder struct {
	BaseModel
	PublicID     int64             `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID       int64             `gorm:"not null;index:idx_reminders_user_status" json:"user_id"`
	MedicineName string            `gorm:"type:varchar(128);not null" json:"medicine_name"`
	Dosage       string            `gorm:"type:varchar(64);not null;default:''" json:"dosage"`
	ScheduledTime string           `gorm:"type:varchar(5);not null" json:"scheduled_time"` // "HH:MM"
	Frequency    ReminderFrequency `gorm:"type:varchar(16);not null" json:"frequency"`
	CustomDays   IntList           `gorm:"type:jsonb;default:'[]'" json:"custom_days"` // 0=周日 ... 6=周六，仅 custom 频率使用
	Status       ReminderStatus    `gorm:"type:varchar(16);not null;default:'pending';index:idx_reminders_user_status" json:"status"`

	// 下一次服药时刻，所有状态判定和 CAS 条件更新都以它为 occurrence 锚点
	NextScheduledAt time.Time  `gorm:"type:timestamptz;not null;index:idx_reminders_next" json:"next_scheduled_at"`
	SnoozedUntil    *time.Time `gorm:"type:timestamptz" json:"snoozed_until,omitempty"`
	LastTakenAt     *time.Time `gorm:"type:timestamptz" json:"last_taken_at,omitempty"`
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}

// IsValidFrequency 校验频率取值
func IsValidFrequency(f ReminderFrequency) bool {
	switch f {
	case FrequencyDaily, FrequencyAlternateDays, FrequencyCustom:
		return true
	}
	return false
}
