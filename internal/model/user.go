package model

// User 用户模型
// 认证身份由外部协作方负责，这里只保留 JWT subject 对应的 public_id
type User struct {
	BaseModel
	PublicID  int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	Name      string     `gorm:"type:varchar(64);not null;default:''" json:"name"`
	Timezone  string     `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Caregivers Int64List `gorm:"type:jsonb;default:'[]'" json:"caregivers"`  // 看护人 public_id 数组（JSONB）
	FCMTokens  StringList `gorm:"type:jsonb;default:'[]'" json:"fcm_tokens"` // 设备推送 token 数组（JSONB）
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
