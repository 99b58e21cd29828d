package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/app"

	"PillSync/internal/middleware"
	"PillSync/internal/model"
	"PillSync/internal/service"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/response"
)

const maxPhotoBytes = 5 << 20 // 5MB

// CreateReminder 创建服药提醒
// POST /v1/reminders
func CreateReminder(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req model.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Reminder().Create(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ListReminders 列出当前用户的全部提醒
// GET /v1/reminders
func ListReminders(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	result, err := service.Reminder().List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeleteReminder 删除提醒
// DELETE /v1/reminders/:reminder_id
func DeleteReminder(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	reminderID := c.Param("reminder_id")

	if err := service.Reminder().Delete(ctx, userID, reminderID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// SnoozeReminder 贪睡
// POST /v1/reminders/:reminder_id/snooze
func SnoozeReminder(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	reminderID := c.Param("reminder_id")

	result, err := service.Reminder().Snooze(ctx, userID, reminderID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// VerifyReminder 服药验证：照片走 multipart（photo 字段）或 JSON base64
// POST /v1/reminders/:reminder_id/verify
func VerifyReminder(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	reminderID := c.Param("reminder_id")

	photoBytes, err := readPhoto(c)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := service.Reminder().Verify(ctx, userID, reminderID, photoBytes)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

func readPhoto(c *app.RequestContext) ([]byte, error) {
	if file, err := c.FormFile("photo"); err == nil {
		if file.Size > maxPhotoBytes {
			return nil, pkgerrors.VerificationPhotoTooLarge
		}
		return readMultipartFile(file)
	}

	var req model.VerifyReminderRequest
	if err := c.Bind(&req); err != nil || req.PhotoBase64 == "" {
		return nil, pkgerrors.VerificationPhotoMissing
	}

	decoded, err := base64.StdEncoding.DecodeString(req.PhotoBase64)
	if err != nil {
		return nil, pkgerrors.VerificationPhotoMissing
	}
	if len(decoded) > maxPhotoBytes {
		return nil, pkgerrors.VerificationPhotoTooLarge
	}

	return decoded, nil
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, pkgerrors.VerificationPhotoMissing
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, pkgerrors.VerificationPhotoMissing
	}

	return data, nil
}
