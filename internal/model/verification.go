package model

// MatchStatus 药品名匹配结果枚举
type MatchStatus string

const (
	MatchStatusMatch    MatchStatus = "match"
	MatchStatusMismatch MatchStatus = "mismatch"
)

// VerificationRecord 服药验证记录，只追加不修改
type VerificationRecord struct {
	BaseModel
	ReminderID     int64       `gorm:"not null;index:idx_verifications_reminder" json:"reminder_id"`
	UserID         int64       `gorm:"not null;index:idx_verifications_user" json:"user_id"`
	MedicineName   string      `gorm:"type:varchar(128);not null" json:"medicine_name"`
	PhotoURL       string      `gorm:"type:varchar(512);not null" json:"photo_url"`
	RecognizedText string      `gorm:"type:text;not null;default:''" json:"recognized_text"`
	MatchStatus    MatchStatus `gorm:"type:varchar(16);not null" json:"match_status"`
}

// TableName 指定表名
func (VerificationRecord) TableName() string {
	return "verification_records"
}
