package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/internal/model/dto"
	"StaySafe/internal/service"
	pkgerrors "StaySafe/pkg/errors"
	"StaySafe/pkg/response"
)

// ContactHandler 联系人 CRUD 的 HTTP 入口
type ContactHandler struct {
	svc *service.ContactService
}

func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// List 返回用户的完整联系人列表
// GET /api/contacts/:user_id
// 从未出现过的 userId 返回空数组，永远不是 404
func (h *ContactHandler) List(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")

	entries, err := h.svc.Fetch(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if entries == nil {
		entries = model.ContactEntries{}
	}
	response.Success(ctx, c, entries)
}

// Create 追加一个联系人
// POST /api/contacts/:user_id
// 聚合不存在时惰性创建，返回 201 和更新后的完整列表
func (h *ContactHandler) Create(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")

	var req dto.ContactFields
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	entries, err := h.svc.AddEntry(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, entries)
}

// Update 整体替换指定联系人的字段
// PUT /api/contacts/:user_id/:entry_id
func (h *ContactHandler) Update(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")

	entryID, err := parseEntryID(c.Param("entry_id"))
	if err != nil {
		// 解析不了的 ID 不可能匹配任何条目，等同于未找到
		response.Error(ctx, c, pkgerrors.ContactNotFound)
		return
	}

	var req dto.ContactFields
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	entries, err := h.svc.UpdateEntry(ctx, userID, entryID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, entries)
}

// Delete 删除指定联系人
// DELETE /api/contacts/:user_id/:entry_id
func (h *ContactHandler) Delete(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")

	entryID, err := parseEntryID(c.Param("entry_id"))
	if err != nil {
		response.Error(ctx, c, pkgerrors.ContactNotFound)
		return
	}

	entries, err := h.svc.DeleteEntry(ctx, userID, entryID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, entries)
}

func parseEntryID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
