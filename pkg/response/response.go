package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
// 对外只暴露 {"error": "<message>"}，错误码仅在服务内部流转
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorToHTTPStatus(err error) int {
	def, ok := err.(errors.Definition)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "CONTACTS_NOT_FOUND", "CONTACT_NOT_FOUND":
		return http.StatusNotFound // 404
	case "CONTACT_LIMIT_REACHED", "CONTACT_NAME_REQUIRED",
		"CONTACT_PHONE_REQUIRED", "CONTACT_RELATION_REQUIRED",
		"INVALID_USER_ID", "ALERT_NO_CONTACTS", "INVALID_REQUEST":
		return http.StatusBadRequest // 400
	case "UNAUTHORIZED":
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(errorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// Success 返回 200 及数据
func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 返回 201 及数据
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Accepted 返回 202 及数据
func Accepted(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
