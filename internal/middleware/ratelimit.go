package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/response"
	"StaySafe/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 阻塞时长（秒），超过限制后禁止访问的时间
	BlockDuration int
	// 错误消息
	ErrorMessage string
}

// MutationRateLimitConfig 联系人变更接口的限流配置
// 防止 UI 上连点导致同一聚合的快速读改写竞争
var MutationRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   30,
	KeyPrefix:     "rate:contacts",
	BlockDuration: 300,
	ErrorMessage:  "too many requests, please try again later",
}

// AlertRateLimitConfig 告警接口的限流配置
var AlertRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   5,
	KeyPrefix:     "rate:alerts",
	BlockDuration: 300,
	ErrorMessage:  "too many alert requests, please try again later",
}

type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config}
}

// getKey 按路径中的 userId 限流，缺失时退回 IP
func (rl *RateLimiter) getKey(c *app.RequestContext) string {
	identifier := c.Param("user_id")
	if identifier == "" {
		identifier = fmt.Sprintf("ip:%s", c.ClientIP())
	}

	return redis.Key(rl.config.KeyPrefix, identifier)
}

// allow 计数窗口 + 阻塞键，Redis 故障时放行以免限流拖垮主链路
func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	client := redis.Client()

	blockKey := key + ":blocked"
	blocked, err := client.Exists(ctx, blockKey).Result()
	if err != nil {
		logger.Logger.Warn("Rate limiter block check failed", zap.Error(err))
		return true
	}
	if blocked > 0 {
		return false
	}

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		logger.Logger.Warn("Rate limiter incr failed", zap.Error(err))
		return true
	}
	if count == 1 {
		client.Expire(ctx, key, time.Duration(rl.config.Window)*time.Second)
	}

	if count > int64(rl.config.MaxRequests) {
		client.Set(ctx, blockKey, 1, time.Duration(rl.config.BlockDuration)*time.Second)
		return false
	}

	return true
}

// RateLimitMiddleware 基于 Redis 计数窗口的限流
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(cfg)

	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.RateLimitEnabled {
			c.Next(ctx)
			return
		}

		if !limiter.allow(ctx, limiter.getKey(c)) {
			c.JSON(http.StatusTooManyRequests, response.ErrorResponse{Error: cfg.ErrorMessage})
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
