package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"PillSync/internal/middleware"
	"PillSync/internal/service"
	"PillSync/pkg/response"
)

// ListNotifications 查询当前用户的通知
// GET /v1/notifications?unread_only=true&limit=50
func ListNotifications(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	unreadOnly := string(c.Query("unread_only")) == "true"
	limit, _ := strconv.Atoi(string(c.Query("limit")))

	result, err := service.Notification().List(ctx, userID, unreadOnly, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{
		"count": len(result),
	})
}

// MarkNotificationRead 标记通知已读
// POST /v1/notifications/:notification_id/read
func MarkNotificationRead(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	notificationID := c.Param("notification_id")

	if err := service.Notification().MarkRead(ctx, userID, notificationID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
