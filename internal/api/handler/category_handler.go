package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

// CategoryHandler 日程分类模块 HTTP 处理器
type CategoryHandler struct {
	categorySvc service.CategoryService
}

// NewCategoryHandler 创建 CategoryHandler
func NewCategoryHandler(categorySvc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categorySvc: categorySvc}
}

// ListCategories 获取日历下的分类
// GET /api/v1/calendars/:id/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	list, err := h.categorySvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCategoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateCategory 创建分类
// POST /api/v1/calendars/:id/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	category, err := h.categorySvc.Create(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleCategoryError(c, err)
		return
	}

	response.Created(c, category)
}

// UpdateCategory 更新分类
// PUT /api/v1/calendars/:id/categories/:categoryId
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	category, err := h.categorySvc.Update(c.Request.Context(), c.Param("id"), c.Param("categoryId"), &req, callerID)
	if err != nil {
		h.handleCategoryError(c, err)
		return
	}

	response.OK(c, category)
}

// DeleteCategory 删除分类
// DELETE /api/v1/calendars/:id/categories/:categoryId
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.categorySvc.Delete(c.Request.Context(), c.Param("id"), c.Param("categoryId"), callerID); err != nil {
		h.handleCategoryError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleCategoryError 统一处理分类模块业务错误
func (h *CategoryHandler) handleCategoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarNotFound):
		response.NotFound(c, 20002, "日历不存在")
	case errors.Is(err, service.ErrCategoryNotFound):
		response.NotFound(c, 22001, "分类不存在")
	default:
		response.InternalError(c)
	}
}
