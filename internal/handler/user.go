package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"PillSync/internal/middleware"
	"PillSync/internal/model"
	"PillSync/internal/service"
	"PillSync/pkg/response"
)

// RegisterFCMToken 注册当前设备的推送 token
// POST /v1/users/me/fcm-token
func RegisterFCMToken(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req model.RegisterFCMTokenRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.User().RegisterFCMToken(ctx, userID, req.Token); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
