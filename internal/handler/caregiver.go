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

// ListCaregivers 列出当前用户的看护人
// GET /v1/caregivers
func ListCaregivers(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	result, err := service.Caregiver().List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// AddCaregiver 添加看护人
// POST /v1/caregivers
func AddCaregiver(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req model.AddCaregiverRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Caregiver().Add(ctx, userID, req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"caregiver_id": req.CaregiverID,
	})
}

// RemoveCaregiver 移除看护人
// DELETE /v1/caregivers/:caregiver_id
func RemoveCaregiver(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	caregiverID := c.Param("caregiver_id")

	if err := service.Caregiver().Remove(ctx, userID, caregiverID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
