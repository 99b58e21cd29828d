package errors

import (
	stderrors "errors"
	"fmt"
)

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID   = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 提醒模块错误。
var (
	ReminderNotFound         = Definition{Code: "REMINDER_NOT_FOUND", Message: "Reminder not found"}
	ReminderTimeInvalid      = Definition{Code: "REMINDER_TIME_INVALID", Message: "Scheduled time must be HH:MM"}
	ReminderFrequencyInvalid = Definition{Code: "REMINDER_FREQUENCY_INVALID", Message: "Frequency invalid"}
	ReminderCustomDaysEmpty  = Definition{Code: "REMINDER_CUSTOM_DAYS_EMPTY", Message: "Custom frequency requires at least one weekday"}
	ReminderNotSnoozable     = Definition{Code: "REMINDER_NOT_SNOOZABLE", Message: "Reminder cannot be snoozed in its current state"}
	ReminderStale            = Definition{Code: "REMINDER_STALE", Message: "Reminder was updated concurrently"}
)

// 服药验证模块错误。
var (
	VerificationPhotoMissing  = Definition{Code: "VERIFICATION_PHOTO_MISSING", Message: "Verification photo missing"}
	VerificationPhotoTooLarge = Definition{Code: "VERIFICATION_PHOTO_TOO_LARGE", Message: "Verification photo too large"}
)

// 看护人模块错误。
var (
	CaregiverLimitReached = Definition{Code: "CAREGIVER_LIMIT_REACHED", Message: "Caregiver limit reached"}
	CaregiverNotFound     = Definition{Code: "CAREGIVER_NOT_FOUND", Message: "Caregiver not found"}
	CaregiverSelfRef      = Definition{Code: "CAREGIVER_SELF_REFERENCE", Message: "Cannot add yourself as caregiver"}
)

// 通知模块错误。
var (
	NotificationNotFound = Definition{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found"}
	FCMTokenInvalid      = Definition{Code: "FCM_TOKEN_INVALID", Message: "FCM token invalid"}
)

// 运维入口错误。
var (
	SweepTokenInvalid = Definition{Code: "SWEEP_TOKEN_INVALID", Message: "Sweep operator token invalid"}
	SweepInProgress   = Definition{Code: "SWEEP_IN_PROGRESS", Message: "A sweep pass is already running"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:              Unauthorized,
	InvalidUserID.Code:             InvalidUserID,
	TooManyRequests.Code:           TooManyRequests,
	ReminderNotFound.Code:          ReminderNotFound,
	ReminderTimeInvalid.Code:       ReminderTimeInvalid,
	ReminderFrequencyInvalid.Code:  ReminderFrequencyInvalid,
	ReminderCustomDaysEmpty.Code:   ReminderCustomDaysEmpty,
	ReminderNotSnoozable.Code:      ReminderNotSnoozable,
	ReminderStale.Code:             ReminderStale,
	VerificationPhotoMissing.Code:  VerificationPhotoMissing,
	VerificationPhotoTooLarge.Code: VerificationPhotoTooLarge,
	CaregiverLimitReached.Code:     CaregiverLimitReached,
	CaregiverNotFound.Code:         CaregiverNotFound,
	CaregiverSelfRef.Code:          CaregiverSelfRef,
	NotificationNotFound.Code:      NotificationNotFound,
	FCMTokenInvalid.Code:           FCMTokenInvalid,
	SweepTokenInvalid.Code:         SweepTokenInvalid,
	SweepInProgress.Code:           SweepInProgress,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// token 相关哨兵错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// SkipMessageError 表示消费者应确认并跳过该消息（重复投递等），不算处理失败。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return fmt.Sprintf("skip message: %s", e.Reason)
}

// IsSkipMessageError 判断错误链上是否存在 SkipMessageError。
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
