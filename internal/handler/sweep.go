package handler

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"

	"PillSync/config"
	"PillSync/internal/model"
	"PillSync/internal/schedule"
	pkgerrors "PillSync/pkg/errors"
	"PillSync/pkg/response"
)

// TriggerSweep 外部触发路径：运维 / cron 调一次巡检。
// 不走用户 JWT，凭 X-Operator-Token 鉴权。
// POST /v1/reminders/sweep
func TriggerSweep(ctx context.Context, c *app.RequestContext) {
	configured := config.Cfg.SweepOperatorToken
	provided := string(c.GetHeader("X-Operator-Token"))

	if configured == "" || subtle.ConstantTimeCompare([]byte(configured), []byte(provided)) != 1 {
		response.Error(ctx, c, pkgerrors.SweepTokenInvalid)
		return
	}

	result, err := schedule.RunSweep(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, model.SweepResponse{
		Processed:  result.Processed,
		AlertsSent: result.AlertsSent,
	})
}
