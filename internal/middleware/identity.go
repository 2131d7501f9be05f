package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"StaySafe/config"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/response"
	"StaySafe/pkg/token"
)

// IdentityMiddleware 可选的身份校验
// 默认关闭：userId 只是外部身份平台签发的不透明键，存储层不对其做任何校验。
// 开启后要求 Bearer token 的 subject 与路径中的 userId 一致，
// 防止拿到任意 token 的调用方操作别人的联系人列表。
func IdentityMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.IdentityVerifyEnabled {
			c.Next(ctx)
			return
		}

		verifier := token.GetVerifier()
		if verifier == nil {
			logger.Logger.Error("Identity verification enabled but verifier is not initialized")
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: "identity verification unavailable"})
			c.Abort()
			return
		}

		auth := string(c.GetHeader("Authorization"))
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{Error: "missing bearer token"})
			c.Abort()
			return
		}

		subject, err := verifier.VerifySubject(raw)
		if err != nil {
			logger.Logger.Warn("Identity token verification failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{Error: "invalid identity token"})
			c.Abort()
			return
		}

		if userID := c.Param("user_id"); userID != "" && subject != userID {
			c.JSON(http.StatusForbidden, response.ErrorResponse{Error: "token subject does not match user"})
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
