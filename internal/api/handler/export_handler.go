package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportICS 导出日历为 iCalendar 文件
// GET /api/v1/calendars/:id/export.ics?start=...&end=...
func (h *ExportHandler) ExportICS(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "start 与 end 不能为空")
		return
	}
	start, ok := parseTimeParam(c, "start", req.Start)
	if !ok {
		return
	}
	end, ok := parseTimeParam(c, "end", req.End)
	if !ok {
		return
	}
	if !end.After(start) {
		response.BadRequest(c, 20004, "结束时间必须晚于开始时间")
		return
	}

	data, filename, err := h.exportSvc.ExportICS(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.File(c, filename, contentTypeICS, data)
}

// ExportXLSX 导出实例明细为 Excel
// GET /api/v1/calendars/:id/export.xlsx?start=...&end=...
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "start 与 end 不能为空")
		return
	}
	start, ok := parseTimeParam(c, "start", req.Start)
	if !ok {
		return
	}
	end, ok := parseTimeParam(c, "end", req.End)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), c.Param("id"), start, end)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.File(c, filename, contentTypeXLSX, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarNotFound):
		response.NotFound(c, 20002, "日历不存在")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 20004, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrQueryRangeTooLarge):
		response.BadRequest(c, 20010, "查询时间范围过大")
	default:
		response.InternalError(c)
	}
}
