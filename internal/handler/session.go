package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"PillSync/internal/middleware"
	"PillSync/internal/schedule"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/response"
)

// OpenSession 客户端上线，启动该用户的提醒轮询
// POST /v1/sessions/open
func OpenSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || uid <= 0 {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	schedule.OpenSession(uid)

	response.Success(ctx, c, map[string]interface{}{
		"session": "open",
	})
}

// CloseSession 客户端下线，停掉轮询循环
// POST /v1/sessions/close
func CloseSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || uid <= 0 {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return
	}

	schedule.CloseSession(uid)

	response.NoContent(ctx, c)
}
