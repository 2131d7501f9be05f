package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/storage/database"
	"StaySafe/storage/redis"
)

// Root 根路径探活
// GET /
func Root(ctx context.Context, c *app.RequestContext) {
	c.String(http.StatusOK, "Server is up and running")
}

// Healthz 依赖健康检查
// GET /healthz
func Healthz(ctx context.Context, c *app.RequestContext) {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if err := database.Ping(checkCtx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if err := redis.Client().Ping(checkCtx).Err(); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
