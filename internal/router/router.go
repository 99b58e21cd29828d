package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"PillSync/internal/handler"
	"PillSync/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 外部调度触发巡检，不走用户 JWT（凭 operator token），单独限流
	v1.POST("/reminders/sweep", middleware.SweepRateLimitMiddleware(), handler.TriggerSweep)

	// 提醒相关路由
	reminders := v1.Group("/reminders")
	reminders.Use(middleware.AuthMiddleware())
	reminders.Use(middleware.GeneralRateLimitMiddleware())
	{
		reminders.GET("", handler.ListReminders)
		reminders.POST("", handler.CreateReminder)
		reminders.DELETE("/:reminder_id", handler.DeleteReminder)
		reminders.POST("/:reminder_id/snooze", handler.SnoozeReminder)
		reminders.POST("/:reminder_id/verify", middleware.VerificationRateLimitMiddleware(), handler.VerifyReminder) // 验证接口单独限流
	}

	// 通知路由
	notifications := v1.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", handler.ListNotifications)
		notifications.POST("/:notification_id/read", handler.MarkNotificationRead)
	}

	// 看护人路由
	caregivers := v1.Group("/caregivers")
	caregivers.Use(middleware.AuthMiddleware())
	{
		caregivers.GET("", handler.ListCaregivers)
		caregivers.POST("", handler.AddCaregiver)
		caregivers.DELETE("/:caregiver_id", handler.RemoveCaregiver)
	}

	// 客户端会话路由（打开 app 即开启本用户的提醒轮询）
	sessions := v1.Group("/sessions")
	sessions.Use(middleware.AuthMiddleware())
	{
		sessions.POST("/open", handler.OpenSession)
		sessions.POST("/close", handler.CloseSession)
	}

	// 用户相关路由
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.POST("/me/fcm-token", handler.RegisterFCMToken)
	}
}
