package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/service"
	pkgerrors "campus-calendar/pkg/errors"
	"campus-calendar/pkg/response"
)

// EventHandler 日程与审批模块 HTTP 处理器
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ──────────────────────── 日程 ────────────────────────

// CreateEvent 创建日程
// POST /api/v1/calendars/:id/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	event, err := h.eventSvc.CreateEvent(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.Created(c, event)
}

// ListEvents 查询时间范围内的日程实例
// GET /api/v1/events?calendar_ids=a,b&start=...&end=...
//
// include_unconfirmed 仅对拥有发布权限的用户生效。
func (h *EventHandler) ListEvents(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.EventRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	calendarIDs := splitIDs(req.CalendarIDs)
	if len(calendarIDs) == 0 {
		response.BadRequest(c, 10001, "calendar_ids 不能为空")
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

	result, err := h.eventSvc.GetEventsInRange(c.Request.Context(), calendarIDs, start, end,
		req.IncludeUnconfirmed && actor.CanPublish)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// GetEvent 获取日程详情（支持实例 ID）
// GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.eventSvc.GetEventByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

// UpdateEvent 按模式编辑日程
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.eventSvc.UpdateEvent(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteEvent 按模式删除日程
// DELETE /api/v1/events/:id?mode=this&occurrence_start=...
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.DeleteEventRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	mode, err := service.ParseEditMode(req.Mode)
	if err != nil {
		handleEventError(c, err)
		return
	}

	var occurrence *time.Time
	if req.OccurrenceStart != "" {
		t, ok := parseTimeParam(c, "occurrence_start", req.OccurrenceStart)
		if !ok {
			return
		}
		occurrence = &t
	}

	if err := h.eventSvc.DeleteEvent(c.Request.Context(), c.Param("id"), mode, occurrence, actor); err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// ──────────────────────── 审批 ────────────────────────

// SubmitEvent 提交审批
// POST /api/v1/events/:id/submit
func (h *EventHandler) SubmitEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.eventSvc.SubmitForApproval(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// ListApprovals 查看各渠道审批状态
// GET /api/v1/events/:id/approvals
func (h *EventHandler) ListApprovals(c *gin.Context) {
	result, err := h.eventSvc.ListApprovals(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// ApproveEvent 渠道审批通过
// POST /api/v1/events/:id/approvals/:channel/approve
func (h *EventHandler) ApproveEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	channel := model.ApprovalChannel(c.Param("channel"))
	result, err := h.eventSvc.ApproveEvent(c.Request.Context(), c.Param("id"), channel, actor)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// RejectEvent 渠道驳回
// POST /api/v1/events/:id/approvals/:channel/reject
func (h *EventHandler) RejectEvent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RejectApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "请填写驳回原因")
		return
	}

	channel := model.ApprovalChannel(c.Param("channel"))
	result, err := h.eventSvc.RejectEvent(c.Request.Context(), c.Param("id"), channel, req.Reason, actor)
	if err != nil {
		handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// handleEventError 统一处理日程与审批模块业务错误
func handleEventError(c *gin.Context, err error) {
	switch {
	// 资源不存在
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 20001, "日程不存在")
	case errors.Is(err, service.ErrCalendarNotFound):
		response.NotFound(c, 20002, "日历不存在")
	case errors.Is(err, service.ErrCategoryNotFound):
		response.NotFound(c, 20003, "分类不存在")
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, 23001, "场地不存在")

	// 参数不合法
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 20004, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrInvalidTimezone):
		response.BadRequest(c, 20005, "无效的时区")
	case errors.Is(err, service.ErrInvalidRecurrence):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20006, "重复规则无效", err.Error())
	case errors.Is(err, service.ErrInvalidOccurrence):
		response.BadRequest(c, 20007, "指定时间不是该系列的发生时间")
	case errors.Is(err, service.ErrInvalidEditMode):
		response.BadRequest(c, 20008, "无效的编辑模式")
	case errors.Is(err, service.ErrQueryRangeTooLarge):
		response.BadRequest(c, 20010, "查询时间范围过大")

	// 状态不允许
	case errors.Is(err, service.ErrParentNotRecurring):
		response.UnprocessableEntity(c, 20009, "父日程没有重复规则，无法拆分")
	case errors.Is(err, service.ErrLocationInactive):
		response.UnprocessableEntity(c, 23002, "场地已停用")
	case errors.Is(err, service.ErrEventNotDraft):
		response.UnprocessableEntity(c, 21001, "仅草稿状态的日程可以提交审批")
	case errors.Is(err, service.ErrApprovalNotFound):
		response.UnprocessableEntity(c, 21003, "该渠道没有审批记录")
	case errors.Is(err, service.ErrEventNotPending):
		response.UnprocessableEntity(c, 21002, "日程不在待审批状态")
	case errors.Is(err, service.ErrApprovalNotPending):
		response.Conflict(c, 21004, "该渠道的审批已处理")
	case errors.Is(err, service.ErrLocationNeedsReapproval):
		response.UnprocessableEntity(c, 21005, "单次实例不能单独更换场地，请编辑整个系列后重新提交审批")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20012, "日程已被修改，请刷新后重试")

	// 权限
	case errors.Is(err, service.ErrNotEventCreator):
		response.Forbidden(c, 20011, "只有日程创建者可以执行此操作")

	default:
		response.InternalError(c)
	}
}
