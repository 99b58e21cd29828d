package model

import "time"

// ========== Reminder 相关 DTO ==========

// CreateReminderRequest 创建提醒请求
type CreateReminderRequest struct {
	MedicineName  string `json:"medicine_name" binding:"required"`
	Dosage        string `json:"dosage"`
	ScheduledTime string `json:"scheduled_time" binding:"required"` // "HH:MM"
	Frequency     string `json:"frequency" binding:"required"`      // daily, alternate_days, custom
	CustomDays    []int  `json:"custom_days"`                       // 仅 custom 频率
}

// ReminderItem 提醒响应项
type ReminderItem struct {
	ReminderID      string     `json:"reminder_id"`
	MedicineName    string     `json:"medicine_name"`
	Dosage          string     `json:"dosage"`
	ScheduledTime   string     `json:"scheduled_time"`
	Frequency       string     `json:"frequency"`
	CustomDays      []int      `json:"custom_days,omitempty"`
	Status          string     `json:"status"`
	NextScheduledAt time.Time  `json:"next_scheduled_at"`
	SnoozedUntil    *time.Time `json:"snoozed_until,omitempty"`
	LastTakenAt     *time.Time `json:"last_taken_at,omitempty"`
}

// SnoozeResponse 贪睡响应
type SnoozeResponse struct {
	ReminderID   string    `json:"reminder_id"`
	Status       string    `json:"status"`
	SnoozedUntil time.Time `json:"snoozed_until"`
}

// VerifyReminderRequest 服药验证请求（照片为 base64 或 multipart）
type VerifyReminderRequest struct {
	PhotoBase64 string `json:"photo_base64"`
}

// VerifyResponse 服药验证响应
type VerifyResponse struct {
	ReminderID      string    `json:"reminder_id"`
	MatchStatus     string    `json:"match_status"`
	RecognizedText  string    `json:"recognized_text"`
	PhotoURL        string    `json:"photo_url"`
	Status          string    `json:"status"`
	NextScheduledAt time.Time `json:"next_scheduled_at"`
}

// ========== Notification 相关 DTO ==========

// NotificationItem 通知响应项
type NotificationItem struct {
	NotificationID string                 `json:"notification_id"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Priority       string                 `json:"priority"`
	Read           bool                   `json:"read"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ========== Caregiver 相关 DTO ==========

// AddCaregiverRequest 添加看护人请求
type AddCaregiverRequest struct {
	CaregiverID string `json:"caregiver_id" binding:"required"` // 看护人 public_id
}

// CaregiverItem 看护人响应项
type CaregiverItem struct {
	CaregiverID string `json:"caregiver_id"`
	Name        string `json:"name"`
}

// ========== 其他 DTO ==========

// RegisterFCMTokenRequest 注册设备推送 token
type RegisterFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SweepResponse 外部调度器触发一次巡检的结果
type SweepResponse struct {
	Processed  int `json:"processed"`
	AlertsSent int `json:"alerts_sent"`
}
