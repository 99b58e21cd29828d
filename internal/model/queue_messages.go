package model

// MissedReminderMessage 漏服升级消息，worker 消费后做看护人扇出
type MissedReminderMessage struct {
	MessageID    string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	ReminderID   int64  `json:"reminder_id"`
	UserID       int64  `json:"user_id"` // 患者 public_id
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	ScheduledAt  string `json:"scheduled_at"` // RFC3339，本次 occurrence 的排程时刻
	MissedAt     string `json:"missed_at"`    // RFC3339，判定漏服的时刻
}

// DueReminderMessage 到点提醒消息，worker 消费后给患者本人推送
type DueReminderMessage struct {
	MessageID    string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	ReminderID   int64  `json:"reminder_id"`
	UserID       int64  `json:"user_id"` // 患者 public_id
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	ScheduledAt  string `json:"scheduled_at"` // RFC3339
}
