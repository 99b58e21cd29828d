package model

// NotificationType 通知类型枚举
type NotificationType string

const (
	NotificationTypeReminderDue     NotificationType = "reminder_due"     // 到点提醒
	NotificationTypeMissedReminder  NotificationType = "missed_reminder"  // 漏服升级
	NotificationTypeWrongMedicine   NotificationType = "wrong_medicine"   // 拍错药
	NotificationTypeIntakeConfirmed NotificationType = "intake_confirmed" // 服药确认
)

// NotificationPriority 通知优先级枚举
type NotificationPriority string

const (
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// Notification 应用内通知模型
// RecipientID 是收件人，SubjectID 是事件所属的患者（看护人收到的通知两者不同）
type Notification struct {
	BaseModel
	Type        NotificationType     `gorm:"type:varchar(32);not null" json:"type"`
	RecipientID int64                `gorm:"not null;index:idx_notifications_recipient" json:"recipient_id"`
	SubjectID   int64                `gorm:"not null" json:"subject_id"`
	Title       string               `gorm:"type:varchar(128);not null" json:"title"`
	Message     string               `gorm:"type:varchar(512);not null" json:"message"`
	Payload     JSONB                `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Priority    NotificationPriority `gorm:"type:varchar(16);not null;default:'normal'" json:"priority"`
	Read        bool                 `gorm:"not null;default:false;index:idx_notifications_recipient" json:"read"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
