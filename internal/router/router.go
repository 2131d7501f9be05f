package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"StaySafe/config"
	"StaySafe/internal/handler"
	"StaySafe/internal/middleware"
)

// Register 挂载全部路由
// 路径与移动端约定保持一致：/api/contacts/{userId}[/{entryId}]
func Register(h *server.Hertz, contacts *handler.ContactHandler, alerts *handler.AlertHandler) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	if config.Cfg.TracingEnabled {
		h.Use(middleware.OpenTelemetryMiddleware())
	}

	h.GET("/", handler.Root)
	h.GET("/healthz", handler.Healthz)

	api := h.Group("/api")

	// 紧急联系人路由
	contactGroup := api.Group("/contacts")
	contactGroup.Use(middleware.IdentityMiddleware())
	{
		contactGroup.GET("/:user_id", contacts.List)
		contactGroup.POST("/:user_id",
			middleware.RateLimitMiddleware(middleware.MutationRateLimitConfig), contacts.Create)
		contactGroup.PUT("/:user_id/:entry_id",
			middleware.RateLimitMiddleware(middleware.MutationRateLimitConfig), contacts.Update)
		contactGroup.DELETE("/:user_id/:entry_id",
			middleware.RateLimitMiddleware(middleware.MutationRateLimitConfig), contacts.Delete)
	}

	// 紧急告警路由
	alertGroup := api.Group("/alerts")
	alertGroup.Use(middleware.IdentityMiddleware())
	{
		alertGroup.POST("/:user_id",
			middleware.RateLimitMiddleware(middleware.AlertRateLimitConfig), alerts.Trigger)
	}
}
