package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model/dto"
	"StaySafe/internal/service"
	"StaySafe/pkg/response"
)

// AlertHandler 紧急告警的 HTTP 入口
type AlertHandler struct {
	svc *service.AlertService
}

func NewAlertHandler(svc *service.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// Trigger 向用户的全部紧急联系人派发求救短信
// POST /api/alerts/:user_id
// 只负责入队，返回 202；没有配置联系人时返回 400
func (h *AlertHandler) Trigger(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")

	var req dto.TriggerAlertRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := h.svc.Trigger(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Accepted(ctx, c, result)
}
