package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campus-calendar/config"
	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/recurrence"
	"campus-calendar/internal/repository"
	"campus-calendar/pkg/metrics"
)

// Actor 调用方身份，由鉴权层预先计算
type Actor struct {
	UserID     string
	CanPublish bool
}

// EventService 日程业务接口
type EventService interface {
	CreateEvent(ctx context.Context, calendarID string, req *dto.CreateEventRequest, actor Actor) (*dto.EventResponse, error)
	GetEventByID(ctx context.Context, id string) (*dto.EventResponse, error)
	GetEventsInRange(ctx context.Context, calendarIDs []string, start, end time.Time, includeUnconfirmed bool) (*dto.EventRangeResponse, error)
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest, actor Actor) (*dto.EditEventResponse, error)
	DeleteEvent(ctx context.Context, id string, mode EditMode, occurrence *time.Time, actor Actor) error

	SubmitForApproval(ctx context.Context, id string, actor Actor) (*dto.ApprovalSummaryResponse, error)
	ApproveEvent(ctx context.Context, id string, channel model.ApprovalChannel, actor Actor) (*dto.ApprovalSummaryResponse, error)
	RejectEvent(ctx context.Context, id string, channel model.ApprovalChannel, reason string, actor Actor) (*dto.ApprovalSummaryResponse, error)
	ListApprovals(ctx context.Context, id string) (*dto.ApprovalSummaryResponse, error)
}

type eventService struct {
	cfg       *config.CalendarConfig
	repo      *repository.Repository
	engine    recurrence.RuleEngine
	expander  *recurrence.Expander
	editor    SeriesEditor
	approvals ApprovalEngine
	logger    *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(
	cfg *config.CalendarConfig,
	repo *repository.Repository,
	engine recurrence.RuleEngine,
	editor SeriesEditor,
	approvals ApprovalEngine,
	logger *zap.Logger,
) EventService {
	return &eventService{
		cfg:       cfg,
		repo:      repo,
		engine:    engine,
		expander:  recurrence.NewExpander(engine, cfg.MaxOccurrencesPerSeries),
		editor:    editor,
		approvals: approvals,
		logger:    logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *eventService) CreateEvent(ctx context.Context, calendarID string, req *dto.CreateEventRequest, actor Actor) (*dto.EventResponse, error) {
	calendar, err := s.repo.Calendar.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		s.logger.Error("查询日历失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	tz := firstNonEmpty(req.Timezone, calendar.Timezone, s.cfg.DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, ErrInvalidTimezone
	}

	event := &model.CalendarEvent{
		CalendarID:  calendarID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime.In(loc),
		EndTime:     req.EndTime.In(loc),
		AllDay:      req.AllDay,
		Timezone:    tz,
		CategoryID:  req.CategoryID,
		LocationID:  req.LocationID,
		CreatorID:   actor.UserID,
	}
	event.StampCreated(actor.UserID)
	if req.Metadata != nil {
		event.Metadata = newMetadata(*req.Metadata)
	}

	if req.RRule != nil && *req.RRule != "" {
		normalized, err := s.engine.Normalize(*req.RRule, event.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		if err := checkAnchor(s.engine, normalized, event.StartTime); err != nil {
			return nil, err
		}
		event.RRule = &normalized
	}

	if event.CategoryID != nil {
		if err := s.checkCategory(ctx, *event.CategoryID, calendarID); err != nil {
			return nil, err
		}
	}
	if event.LocationID != nil {
		if err := checkLocationUsable(ctx, s.repo, s.logger, calendar.OrganizationID, *event.LocationID); err != nil {
			return nil, err
		}
	}

	event.Status = s.approvals.InitialStatus(actor.CanPublish, calendar)
	if event.Status == model.EventStatusConfirmed {
		now := time.Now()
		event.ApprovedBy = &actor.UserID
		event.ApprovedAt = &now
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Create(ctx, event); err != nil {
			return err
		}
		requests := make([]model.ResourceRequest, 0, len(req.ResourceRequests))
		for _, item := range req.ResourceRequests {
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			requests = append(requests, model.ResourceRequest{
				EventID:      event.EventID,
				ResourceType: item.ResourceType,
				ResourceID:   item.ResourceID,
				Quantity:     quantity,
				Notes:        item.Notes,
			})
		}
		return txRepo.ResourceRequest.BatchCreate(ctx, requests)
	})
	if err != nil {
		s.logger.Error("创建日程失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("日程已创建",
		zap.String("event_id", event.EventID),
		zap.String("kind", event.Kind().String()),
		zap.String("status", event.Status),
	)
	return toEventResponse(event), nil
}

// ────────────────────── Query ──────────────────────

func (s *eventService) GetEventByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	eventID, _ := splitTargetID(id)
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toEventResponse(event), nil
}

// GetEventsInRange 展开窗口内的全部实例并按开始时间排序
//
// 各系列的展开互不依赖，按 expand_workers 并行执行。
func (s *eventService) GetEventsInRange(ctx context.Context, calendarIDs []string, start, end time.Time, includeUnconfirmed bool) (*dto.EventRangeResponse, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	if s.cfg.MaxQueryDays > 0 && end.Sub(start) > time.Duration(s.cfg.MaxQueryDays)*24*time.Hour {
		return nil, ErrQueryRangeTooLarge
	}

	var statuses []string
	if !includeUnconfirmed {
		statuses = []string{model.EventStatusConfirmed}
	}

	events, err := s.repo.Event.ListInRange(ctx, dedupe(calendarIDs), start, end, statuses)
	if err != nil {
		s.logger.Error("查询范围内日程失败", zap.Error(err))
		return nil, err
	}

	var seriesIDs []string
	for i := range events {
		if events[i].IsRecurring() {
			seriesIDs = append(seriesIDs, events[i].EventID)
		}
	}
	exceptions, err := s.repo.Exception.ListByParents(ctx, seriesIDs)
	if err != nil {
		s.logger.Error("查询实例覆盖失败", zap.Error(err))
		return nil, err
	}
	byParent := make(map[string][]model.EventException, len(seriesIDs))
	for _, ex := range exceptions {
		byParent[ex.ParentEventID] = append(byParent[ex.ParentEventID], ex)
	}

	results := make([]recurrence.Result, len(events))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.ExpandWorkers > 0 {
		g.SetLimit(s.cfg.ExpandWorkers)
	}
	for i := range events {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			event := &events[i]
			res, err := s.expander.Expand(event, byParent[event.EventID], start, end)
			if err != nil {
				// 存量数据中的非法规则只影响该系列
				s.logger.Warn("展开重复日程失败，已跳过",
					zap.String("event_id", event.EventID),
					zap.Error(err),
				)
				return nil
			}
			if event.IsRecurring() {
				metrics.RecordSeriesExpansion(res.Truncated)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.EventRangeResponse{Instances: []dto.InstanceResponse{}}
	var instances []recurrence.Instance
	for i, res := range results {
		instances = append(instances, res.Instances...)
		if res.Truncated {
			resp.TruncatedSeries = append(resp.TruncatedSeries, events[i].EventID)
			s.logger.Warn("重复日程实例数超过上限，结果已截断", zap.String("event_id", events[i].EventID))
		}
	}
	sort.SliceStable(instances, func(a, b int) bool {
		return instances[a].Start.Before(instances[b].Start)
	})
	for i := range instances {
		resp.Instances = append(resp.Instances, toInstanceResponse(&instances[i]))
	}
	return resp, nil
}

// ────────────────────── Update / Delete ──────────────────────

func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest, actor Actor) (*dto.EditEventResponse, error) {
	mode, err := ParseEditMode(req.Mode)
	if err != nil {
		return nil, err
	}

	eventID, occurrence := splitTargetID(id)
	if req.OccurrenceStart != nil {
		occurrence = req.OccurrenceStart
	}

	target, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canModify(target, actor) {
		return nil, ErrNotEventCreator
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		if err := s.checkCategory(ctx, *req.CategoryID, target.CalendarID); err != nil {
			return nil, err
		}
	}
	if req.LocationID != nil && *req.LocationID != "" {
		if err := s.checkLocation(ctx, *req.LocationID, target.CalendarID); err != nil {
			return nil, err
		}
	}

	result, err := s.editor.EditInstance(ctx, target, occurrence, &req.EventChanges, mode, actor)
	if err != nil {
		return nil, err
	}

	resp := &dto.EditEventResponse{Mode: string(result.Mode)}
	if result.Mode != EditModeThis && result.Root != nil {
		resp.Event = toEventResponse(result.Root)
	}
	if result.NewSeries != nil {
		resp.NewSeries = toEventResponse(result.NewSeries)
	}
	if result.Exception != nil {
		resp.Exception = toExceptionResponse(result.Exception)
	}
	return resp, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string, mode EditMode, occurrence *time.Time, actor Actor) error {
	eventID, fromID := splitTargetID(id)
	if occurrence == nil {
		occurrence = fromID
	}

	target, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !canModify(target, actor) {
		return ErrNotEventCreator
	}
	return s.editor.DeleteInstance(ctx, target, occurrence, mode, actor.UserID)
}

// ────────────────────── Approval ──────────────────────

func (s *eventService) SubmitForApproval(ctx context.Context, id string, actor Actor) (*dto.ApprovalSummaryResponse, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	approvals, err := s.approvals.Submit(ctx, event, event.CreatorID == actor.UserID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return toApprovalSummary(event, approvals), nil
}

func (s *eventService) ApproveEvent(ctx context.Context, id string, channel model.ApprovalChannel, actor Actor) (*dto.ApprovalSummaryResponse, error) {
	event, err := s.approvals.Approve(ctx, id, channel, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, event)
}

func (s *eventService) RejectEvent(ctx context.Context, id string, channel model.ApprovalChannel, reason string, actor Actor) (*dto.ApprovalSummaryResponse, error) {
	event, err := s.approvals.Reject(ctx, id, channel, actor.UserID, reason)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, event)
}

func (s *eventService) ListApprovals(ctx context.Context, id string) (*dto.ApprovalSummaryResponse, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, event)
}

// ── 内部辅助方法 ──

func (s *eventService) loadEvent(ctx context.Context, id string) (*model.CalendarEvent, error) {
	event, err := s.repo.Event.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询日程失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	return event, nil
}

func (s *eventService) checkCategory(ctx context.Context, categoryID, calendarID string) error {
	category, err := s.repo.Category.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		s.logger.Error("查询分类失败", zap.String("category_id", categoryID), zap.Error(err))
		return err
	}
	if category.CalendarID != calendarID {
		return ErrCategoryNotFound
	}
	return nil
}

// checkLocation 按日历所属组织校验场地
func (s *eventService) checkLocation(ctx context.Context, locationID, calendarID string) error {
	calendar, err := s.repo.Calendar.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCalendarNotFound
		}
		return err
	}
	return checkLocationUsable(ctx, s.repo, s.logger, calendar.OrganizationID, locationID)
}

func (s *eventService) summary(ctx context.Context, event *model.CalendarEvent) (*dto.ApprovalSummaryResponse, error) {
	approvals, err := s.approvals.List(ctx, event.EventID)
	if err != nil {
		return nil, err
	}
	return toApprovalSummary(event, approvals), nil
}

// canModify 创建者或拥有发布权限的用户可以编辑、删除日程
func canModify(event *model.CalendarEvent, actor Actor) bool {
	return event.CreatorID == actor.UserID || actor.CanPublish
}

// splitTargetID 支持以实例标识定位：返回系列根 ID 及实例的原定开始时间
func splitTargetID(id string) (string, *time.Time) {
	eventID, occ, err := recurrence.ParseInstanceID(id)
	if err != nil {
		return id, nil
	}
	return eventID, &occ
}

func newMetadata(m model.EventMetadata) datatypes.JSONType[model.EventMetadata] {
	return datatypes.NewJSONType(m)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "UTC"
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ── DTO 转换 ──

func toEventResponse(e *model.CalendarEvent) *dto.EventResponse {
	return &dto.EventResponse{
		ID:            e.EventID,
		CalendarID:    e.CalendarID,
		Kind:          e.Kind().String(),
		Title:         e.Title,
		Description:   e.Description,
		StartTime:     dto.FormatTime(e.StartTime),
		EndTime:       dto.FormatTime(e.EndTime),
		AllDay:        e.AllDay,
		Timezone:      e.Timezone,
		RRule:         e.RRule,
		Status:        e.Status,
		ParentEventID: e.ParentEventID,
		CategoryID:    e.CategoryID,
		LocationID:    e.LocationID,
		Metadata:      e.Metadata.Data(),
		CreatorID:     e.CreatorID,
		ApprovedBy:    e.ApprovedBy,
		ApprovedAt:    dto.FormatTimePtr(e.ApprovedAt),
		Version:       e.Version,
		CreatedAt:     dto.FormatTime(e.CreatedAt),
		UpdatedAt:     dto.FormatTime(e.UpdatedAt),
	}
}

func toExceptionResponse(ex *model.EventException) *dto.ExceptionResponse {
	return &dto.ExceptionResponse{
		ID:            ex.ExceptionID,
		ParentEventID: ex.ParentEventID,
		OriginalStart: dto.FormatTime(ex.OriginalStart),
		Title:         ex.Title,
		StartTime:     dto.FormatTime(ex.StartTime),
		EndTime:       dto.FormatTime(ex.EndTime),
		AllDay:        ex.AllDay,
		Cancelled:     ex.Cancelled,
	}
}

func toInstanceResponse(inst *recurrence.Instance) dto.InstanceResponse {
	return dto.InstanceResponse{
		ID:            inst.InstanceID,
		EventID:       inst.EventID,
		ExceptionID:   inst.ExceptionID,
		CalendarID:    inst.CalendarID,
		Title:         inst.Title,
		Description:   inst.Description,
		Start:         dto.FormatTime(inst.Start),
		End:           dto.FormatTime(inst.End),
		OriginalStart: dto.FormatTime(inst.OriginalStart),
		AllDay:        inst.AllDay,
		Status:        inst.Status,
		CategoryID:    inst.CategoryID,
		LocationID:    inst.LocationID,
		Metadata:      inst.Metadata,
		IsRecurring:   inst.IsRecurring,
		IsException:   inst.IsException,
	}
}

func toApprovalSummary(event *model.CalendarEvent, approvals []model.EventApproval) *dto.ApprovalSummaryResponse {
	resp := &dto.ApprovalSummaryResponse{
		EventID:     event.EventID,
		EventStatus: event.Status,
		Approvals:   make([]dto.ApprovalResponse, 0, len(approvals)),
	}
	for _, a := range approvals {
		resp.Approvals = append(resp.Approvals, dto.ApprovalResponse{
			ID:           a.ApprovalID,
			Channel:      string(a.Channel),
			Status:       a.Status,
			ResponderID:  a.ResponderID,
			RespondedAt:  dto.FormatTimePtr(a.RespondedAt),
			RejectReason: a.RejectReason,
		})
	}
	return resp
}
