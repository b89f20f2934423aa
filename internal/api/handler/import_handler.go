package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

// ImportHandler ICS 导入 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// ImportICS 导入 ICS 日历
// POST /api/v1/calendars/:id/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}
func (h *ImportHandler) ImportICS(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	calendarID := c.Param("id")

	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.importSvc.ImportICS(c.Request.Context(), calendarID, file, actor)
		if err != nil {
			h.handleImportError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	// 尝试 URL 方式
	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 也可能是纯 form 提交
		req.URL = c.PostForm("url")
	}
	if req.URL == "" {
		response.BadRequest(c, 25000, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	// 获取 ICS 内容
	body, err := service.FetchICSContent(req.URL)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 25001, "ICS URL 获取失败", err.Error())
		return
	}
	defer body.Close()

	resp, err := h.importSvc.ImportICS(c.Request.Context(), calendarID, body, actor)
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.Created(c, resp)
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarNotFound):
		response.NotFound(c, 20002, "日历不存在")
	case errors.Is(err, service.ErrICSParseFailed):
		response.BadRequest(c, 25002, "ICS 文件解析失败")
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 25003, "ICS 文件中没有可导入的日程")
	default:
		response.InternalError(c)
	}
}
