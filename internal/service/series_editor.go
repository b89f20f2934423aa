package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/recurrence"
	"campus-calendar/internal/repository"
	pkgerrors "campus-calendar/pkg/errors"
)

// EditMode 重复日程的编辑粒度
type EditMode string

const (
	EditModeThis             EditMode = "this"
	EditModeThisAndFollowing EditMode = "this_and_following"
	EditModeAll              EditMode = "all"
)

// maxParentDepth 沿父引用回溯的最大层数
const maxParentDepth = 8

// ParseEditMode 解析编辑模式，空字符串视为 all
func ParseEditMode(s string) (EditMode, error) {
	switch EditMode(s) {
	case "", EditModeAll:
		return EditModeAll, nil
	case EditModeThis:
		return EditModeThis, nil
	case EditModeThisAndFollowing:
		return EditModeThisAndFollowing, nil
	}
	return "", ErrInvalidEditMode
}

// EditResult 一次编辑写入的记录
type EditResult struct {
	Mode      EditMode
	Root      *model.CalendarEvent  // all 模式更新后的根；拆分时为被截断的旧根
	NewSeries *model.CalendarEvent  // this_and_following 新建的系列根
	Exception *model.EventException // this 模式写入的覆盖
}

// SeriesEditor 重复日程编辑器
type SeriesEditor interface {
	// EditInstance 按模式编辑 occurrence 所在的那次发生；单次日程的 this / this_and_following 退化为 all。
	// 无发布权限的操作人更换已进入审批流程的日程场地时，写入的记录退回草稿。
	EditInstance(ctx context.Context, target *model.CalendarEvent, occurrence *time.Time, changes *dto.EventChanges, mode EditMode, actor Actor) (*EditResult, error)
	// DeleteInstance 按模式删除：this 写入取消标记，this_and_following 截断系列，all 删除整个系列
	DeleteInstance(ctx context.Context, target *model.CalendarEvent, occurrence *time.Time, mode EditMode, actorID string) error
}

type seriesEditor struct {
	repo   *repository.Repository
	engine recurrence.RuleEngine
	logger *zap.Logger
}

// NewSeriesEditor 创建 SeriesEditor 实例
func NewSeriesEditor(repo *repository.Repository, engine recurrence.RuleEngine, logger *zap.Logger) SeriesEditor {
	return &seriesEditor{repo: repo, engine: engine, logger: logger}
}

// ────────────────────── Edit ──────────────────────

func (s *seriesEditor) EditInstance(ctx context.Context, target *model.CalendarEvent, occurrence *time.Time, changes *dto.EventChanges, mode EditMode, actor Actor) (*EditResult, error) {
	if changes == nil {
		changes = &dto.EventChanges{}
	}
	actorID := actor.UserID

	switch mode {
	case EditModeAll:
		root, err := s.resolveRoot(ctx, target)
		if err != nil {
			return nil, err
		}
		reapprove, err := s.needsReapproval(ctx, root, changes, actor)
		if err != nil {
			return nil, err
		}
		return s.editAll(ctx, root, occurrence, changes, actorID, reapprove)
	case EditModeThis, EditModeThisAndFollowing:
	default:
		return nil, ErrInvalidEditMode
	}

	series, standalone, err := s.resolveSeries(ctx, target)
	if err != nil {
		return nil, err
	}
	reapprove, err := s.needsReapproval(ctx, series, changes, actor)
	if err != nil {
		return nil, err
	}
	if standalone {
		return s.editAll(ctx, series, nil, changes, actorID, reapprove)
	}

	occ, err := s.checkOccurrence(series, occurrence)
	if err != nil {
		return nil, err
	}

	if mode == EditModeThis {
		// 覆盖没有独立的审批状态
		if reapprove {
			return nil, ErrLocationNeedsReapproval
		}
		return s.editThis(ctx, series, occ, changes, actorID)
	}
	// 从第一次发生开始拆分等同于编辑整个系列
	if occ.Equal(series.StartTime) {
		return s.editAll(ctx, series, &occ, changes, actorID, reapprove)
	}
	return s.split(ctx, series, occ, changes, actorID, reapprove)
}

func (s *seriesEditor) editAll(ctx context.Context, root *model.CalendarEvent, occurrence *time.Time, changes *dto.EventChanges, actorID string, reapprove bool) (*EditResult, error) {
	if !root.IsRecurring() {
		occurrence = nil
	}
	if err := s.applyToEvent(root, occurrence, changes); err != nil {
		return nil, err
	}
	root.StampUpdated(actorID)
	if reapprove {
		resetToDraft(root)
	}

	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Update(ctx, root); err != nil {
			return err
		}
		if !reapprove {
			return nil
		}
		// 旧场地对应的审批记录作废，重新提交时按新场地生成
		return txRepo.Approval.DeleteByEvent(ctx, root.EventID)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新日程失败", zap.String("event_id", root.EventID), zap.Error(err))
		}
		return nil, err
	}
	if reapprove {
		s.logger.Info("场地变更，日程退回草稿", zap.String("event_id", root.EventID))
	}
	return &EditResult{Mode: EditModeAll, Root: root}, nil
}

func (s *seriesEditor) editThis(ctx context.Context, series *model.CalendarEvent, occ time.Time, changes *dto.EventChanges, actorID string) (*EditResult, error) {
	ex, err := s.repo.Exception.GetBySlot(ctx, series.EventID, occ)
	isNew := false
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		ex = newExceptionFrom(series, occ)
		isNew = true
	default:
		s.logger.Error("查询实例覆盖失败", zap.String("event_id", series.EventID), zap.Error(err))
		return nil, err
	}

	ex.Cancelled = false
	if err := applyToException(ex, changes); err != nil {
		return nil, err
	}

	if isNew {
		ex.StampCreated(actorID)
		err = s.repo.Exception.Create(ctx, ex)
	} else {
		ex.StampUpdated(actorID)
		err = s.repo.Exception.Update(ctx, ex)
	}
	if err != nil {
		s.logger.Error("写入实例覆盖失败",
			zap.String("event_id", series.EventID),
			zap.Time("original_start", occ),
			zap.Error(err),
		)
		return nil, err
	}

	return &EditResult{Mode: EditModeThis, Root: series, Exception: ex}, nil
}

// split 截断旧系列并从 occ 起创建新的独立系列根（单事务）
func (s *seriesEditor) split(ctx context.Context, series *model.CalendarEvent, occ time.Time, changes *dto.EventChanges, actorID string, reapprove bool) (*EditResult, error) {
	loc := recurrence.Location(series.Timezone)
	anchor := series.StartTime.In(loc)
	rule := *series.RRule

	consumed, err := s.engine.CountBefore(rule, anchor, occ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	truncated, err := s.truncatedRule(rule, anchor, occ, consumed)
	if err != nil {
		return nil, err
	}
	rebased, err := s.engine.Rebased(rule, occ, consumed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}

	newRoot := cloneAsRoot(series)
	newRoot.StartTime = occ
	newRoot.EndTime = occ.Add(series.Duration())
	newRoot.RRule = &rebased
	newRoot.StampCreated(actorID)
	if err := s.applyToEvent(newRoot, nil, changes); err != nil {
		return nil, err
	}
	if reapprove {
		resetToDraft(newRoot)
	}

	following, err := s.repo.Exception.ListFrom(ctx, series.EventID, occ)
	if err != nil {
		s.logger.Error("查询后续实例覆盖失败", zap.String("event_id", series.EventID), zap.Error(err))
		return nil, err
	}
	requests, err := s.repo.ResourceRequest.ListByEvent(ctx, series.EventID)
	if err != nil {
		s.logger.Error("查询资源申请失败", zap.String("event_id", series.EventID), zap.Error(err))
		return nil, err
	}
	var approvals []model.EventApproval
	if !reapprove {
		approvals, err = s.repo.Approval.ListByEvent(ctx, series.EventID)
		if err != nil {
			s.logger.Error("查询审批记录失败", zap.String("event_id", series.EventID), zap.Error(err))
			return nil, err
		}
	}

	originalRule := series.RRule
	series.RRule = &truncated
	series.StampUpdated(actorID)

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Update(ctx, series); err != nil {
			return err
		}
		if err := txRepo.Event.Create(ctx, newRoot); err != nil {
			return err
		}
		if err := txRepo.ResourceRequest.BatchCreate(ctx, copyRequests(requests, newRoot.EventID)); err != nil {
			return err
		}
		if err := txRepo.Approval.BatchCreate(ctx, copyApprovals(approvals, newRoot.EventID)); err != nil {
			return err
		}

		// 被编辑的那次由新系列的首次发生取代；其余覆盖迁移到新系列的对应时间点
		for i := range following {
			ex := &following[i]
			if ex.OriginalStart.Equal(occ) {
				if err := txRepo.Exception.Delete(ctx, ex.ExceptionID); err != nil {
					return err
				}
				continue
			}
			ex.ParentEventID = newRoot.EventID
			ex.OriginalStart = recurrence.ShiftWallClock(ex.OriginalStart, occ, newRoot.StartTime, loc).UTC()
			ex.StampUpdated(actorID)
			if err := txRepo.Exception.Update(ctx, ex); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		series.RRule = originalRule
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("拆分重复系列失败", zap.String("event_id", series.EventID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("重复系列已拆分",
		zap.String("event_id", series.EventID),
		zap.String("new_event_id", newRoot.EventID),
		zap.Time("split_at", occ),
	)
	return &EditResult{Mode: EditModeThisAndFollowing, Root: series, NewSeries: newRoot}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *seriesEditor) DeleteInstance(ctx context.Context, target *model.CalendarEvent, occurrence *time.Time, mode EditMode, actorID string) error {
	switch mode {
	case EditModeAll:
		root, err := s.resolveRoot(ctx, target)
		if err != nil {
			return err
		}
		return s.deleteSeries(ctx, root, actorID)
	case EditModeThis, EditModeThisAndFollowing:
	default:
		return ErrInvalidEditMode
	}

	series, standalone, err := s.resolveSeries(ctx, target)
	if err != nil {
		return err
	}
	if standalone {
		return s.deleteSeries(ctx, series, actorID)
	}

	occ, err := s.checkOccurrence(series, occurrence)
	if err != nil {
		return err
	}

	if mode == EditModeThis {
		return s.cancelOccurrence(ctx, series, occ, actorID)
	}
	if occ.Equal(series.StartTime) {
		return s.deleteSeries(ctx, series, actorID)
	}

	anchor := series.StartTime.In(recurrence.Location(series.Timezone))
	consumed, err := s.engine.CountBefore(*series.RRule, anchor, occ)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	truncated, err := s.truncatedRule(*series.RRule, anchor, occ, consumed)
	if err != nil {
		return err
	}

	originalRule := series.RRule
	series.RRule = &truncated
	series.StampUpdated(actorID)

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Update(ctx, series); err != nil {
			return err
		}
		return txRepo.Exception.DeleteFrom(ctx, series.EventID, occ)
	})
	if err != nil {
		series.RRule = originalRule
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("截断重复系列失败", zap.String("event_id", series.EventID), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *seriesEditor) cancelOccurrence(ctx context.Context, series *model.CalendarEvent, occ time.Time, actorID string) error {
	ex, err := s.repo.Exception.GetBySlot(ctx, series.EventID, occ)
	switch {
	case err == nil:
		ex.Cancelled = true
		ex.StampUpdated(actorID)
		err = s.repo.Exception.Update(ctx, ex)
	case errors.Is(err, gorm.ErrRecordNotFound):
		ex = newExceptionFrom(series, occ)
		ex.Cancelled = true
		ex.StampCreated(actorID)
		err = s.repo.Exception.Create(ctx, ex)
	}
	if err != nil {
		s.logger.Error("取消单次发生失败",
			zap.String("event_id", series.EventID),
			zap.Time("original_start", occ),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *seriesEditor) deleteSeries(ctx context.Context, root *model.CalendarEvent, actorID string) error {
	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Exception.DeleteByParent(ctx, root.EventID); err != nil {
			return err
		}
		if err := txRepo.Approval.DeleteByEvent(ctx, root.EventID); err != nil {
			return err
		}
		if err := txRepo.ResourceRequest.DeleteByEvent(ctx, root.EventID); err != nil {
			return err
		}
		return txRepo.Event.Delete(ctx, root.EventID, actorID)
	})
	if err != nil {
		s.logger.Error("删除日程失败", zap.String("event_id", root.EventID), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// resolveRoot 沿父引用回溯到最上层的系列根
func (s *seriesEditor) resolveRoot(ctx context.Context, event *model.CalendarEvent) (*model.CalendarEvent, error) {
	current := event
	for depth := 0; current.ParentEventID != nil; depth++ {
		if depth >= maxParentDepth {
			return nil, fmt.Errorf("日程 %s 的父引用层级过深", event.EventID)
		}
		parent, err := s.repo.Event.GetByID(ctx, *current.ParentEventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEventNotFound
			}
			s.logger.Error("查询父日程失败", zap.String("event_id", *current.ParentEventID), zap.Error(err))
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// resolveSeries 找到生成该发生的重复系列；standalone 为 true 表示没有可拆分的规则
func (s *seriesEditor) resolveSeries(ctx context.Context, target *model.CalendarEvent) (*model.CalendarEvent, bool, error) {
	if target.IsRecurring() {
		return target, false, nil
	}
	if target.ParentEventID == nil {
		return target, true, nil
	}
	parent, err := s.resolveRoot(ctx, target)
	if err != nil {
		return nil, false, err
	}
	if !parent.IsRecurring() {
		return nil, false, ErrParentNotRecurring
	}
	return parent, false, nil
}

// checkOccurrence 校验 occurrence 是系列真实生成的发生时间，返回按系列时区表示的时间
func (s *seriesEditor) checkOccurrence(series *model.CalendarEvent, occurrence *time.Time) (time.Time, error) {
	if occurrence == nil {
		return time.Time{}, ErrInvalidOccurrence
	}
	loc := recurrence.Location(series.Timezone)
	occ := occurrence.In(loc)

	ok, err := s.engine.IsOccurrence(*series.RRule, series.StartTime.In(loc), occ)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	if !ok {
		return time.Time{}, ErrInvalidOccurrence
	}
	return occ, nil
}

// needsReapproval 场地决定审批渠道：无发布权限的操作人更换已确认或待审批日程的场地时需重新审批
func (s *seriesEditor) needsReapproval(ctx context.Context, event *model.CalendarEvent, changes *dto.EventChanges, actor Actor) (bool, error) {
	if actor.CanPublish || changes.LocationID == nil {
		return false, nil
	}
	if event.Status != model.EventStatusConfirmed && event.Status != model.EventStatusPendingApproval {
		return false, nil
	}
	if sameLocation(event.LocationID, emptyToNil(*changes.LocationID)) {
		return false, nil
	}

	calendar := event.Calendar
	if calendar == nil {
		var err error
		calendar, err = s.repo.Calendar.GetByID(ctx, event.CalendarID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrCalendarNotFound
			}
			s.logger.Error("查询日历失败", zap.String("calendar_id", event.CalendarID), zap.Error(err))
			return false, err
		}
	}
	return calendar.RequiresApproval, nil
}

func sameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func resetToDraft(event *model.CalendarEvent) {
	event.Status = model.EventStatusDraft
	event.ApprovedBy = nil
	event.ApprovedAt = nil
}

// truncatedRule 计算截断到 occ 之前的规则
//
// UNTIL 取 occ 前一天的最后一秒（系列时区）；若这样会丢掉 occ 当天更早的发生
// （小时级频率或 BYHOUR 多次），改为 occ 前一秒。COUNT 总是被清除。
func (s *seriesEditor) truncatedRule(rule string, anchor, occ time.Time, consumed int) (string, error) {
	subDaily, err := s.engine.IsSubDaily(rule)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}

	if !subDaily {
		dayCut := time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, occ.Location()).Add(-time.Second)
		cut, err := s.engine.WithUntil(rule, dayCut)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		kept, err := s.engine.CountBefore(cut, anchor, occ)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		if kept == consumed {
			return cut, nil
		}
	}

	cut, err := s.engine.WithUntil(rule, occ.Add(-time.Second))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return cut, nil
}

// applyToEvent 将变更合并到日程记录
//
// ref 为被编辑的那次发生：时间变更按该次发生的位移平移整个系列的锚点。
// 只提供开始时间时保持原时长；锚点移到别的星期或日期时，规则中的 BY 字段随之改写。
func (s *seriesEditor) applyToEvent(event *model.CalendarEvent, ref *time.Time, changes *dto.EventChanges) error {
	if changes.Title != nil {
		event.Title = *changes.Title
	}
	if changes.Description != nil {
		event.Description = *changes.Description
	}
	if changes.AllDay != nil {
		event.AllDay = *changes.AllDay
	}
	if changes.CategoryID != nil {
		event.CategoryID = emptyToNil(*changes.CategoryID)
	}
	if changes.LocationID != nil {
		event.LocationID = emptyToNil(*changes.LocationID)
	}
	if changes.Metadata != nil {
		event.Metadata = newMetadata(*changes.Metadata)
	}
	if changes.Timezone != nil {
		if _, err := time.LoadLocation(*changes.Timezone); err != nil || *changes.Timezone == "" {
			return ErrInvalidTimezone
		}
		event.Timezone = *changes.Timezone
	}

	loc := recurrence.Location(event.Timezone)
	oldAnchor := event.StartTime.In(loc)
	from := event.StartTime
	if ref != nil {
		from = *ref
	}
	newStart, newEnd := movedBounds(from, from.Add(event.Duration()), changes)
	event.StartTime = recurrence.ShiftWallClock(event.StartTime, from, newStart, loc)
	event.EndTime = event.StartTime.Add(newEnd.Sub(newStart))
	if !event.EndTime.After(event.StartTime) {
		return ErrInvalidTimeRange
	}

	if changes.RRule != nil {
		event.RRule = emptyToNil(*changes.RRule)
	}
	if !event.IsRecurring() {
		return nil
	}

	anchor := event.StartTime.In(loc)
	moved := !anchor.Equal(oldAnchor)
	rule := *event.RRule
	// 锚点被移到别的日期或时刻时，原规则里按旧锚点写死的 BY 字段随之平移
	if changes.RRule == nil && moved {
		realigned, err := s.engine.Realigned(rule, oldAnchor, anchor)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		rule = realigned
	}
	normalized, err := s.engine.Normalize(rule, anchor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	// 只校验本次改动过的锚点或规则，导入的存量系列允许锚点不在规则上
	if moved || changes.RRule != nil {
		if err := checkAnchor(s.engine, normalized, anchor); err != nil {
			return err
		}
	}
	event.RRule = &normalized
	return nil
}

// checkAnchor 系列的开始时间必须是规则生成的第一次发生，否则该次实例会在展开时丢失
func checkAnchor(engine recurrence.RuleEngine, rule string, anchor time.Time) error {
	ok, err := engine.IsOccurrence(rule, anchor, anchor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	if !ok {
		return fmt.Errorf("%w: 开始时间不符合重复规则", ErrInvalidRecurrence)
	}
	return nil
}

func applyToException(ex *model.EventException, changes *dto.EventChanges) error {
	if changes.Title != nil {
		ex.Title = *changes.Title
	}
	if changes.Description != nil {
		ex.Description = *changes.Description
	}
	if changes.AllDay != nil {
		ex.AllDay = *changes.AllDay
	}
	if changes.CategoryID != nil {
		ex.CategoryID = emptyToNil(*changes.CategoryID)
	}
	if changes.LocationID != nil {
		ex.LocationID = emptyToNil(*changes.LocationID)
	}
	if changes.Metadata != nil {
		ex.Metadata = newMetadata(*changes.Metadata)
	}

	ex.StartTime, ex.EndTime = movedBounds(ex.StartTime, ex.EndTime, changes)
	if !ex.EndTime.After(ex.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// movedBounds 计算变更后的起止时间，未提供结束时间时沿用原时长
func movedBounds(start, end time.Time, changes *dto.EventChanges) (time.Time, time.Time) {
	duration := end.Sub(start)
	if changes.StartTime != nil {
		start = *changes.StartTime
		end = start.Add(duration)
	}
	if changes.EndTime != nil {
		end = *changes.EndTime
	}
	return start, end
}

func newExceptionFrom(series *model.CalendarEvent, occ time.Time) *model.EventException {
	start := occ.In(recurrence.Location(series.Timezone))
	return &model.EventException{
		ParentEventID: series.EventID,
		OriginalStart: occ.UTC(),
		Title:         series.Title,
		Description:   series.Description,
		StartTime:     start,
		EndTime:       start.Add(series.Duration()),
		AllDay:        series.AllDay,
		CategoryID:    series.CategoryID,
		LocationID:    series.LocationID,
		Metadata:      series.Metadata,
	}
}

// cloneAsRoot 复制系列字段作为新系列根（不带标识、版本与父引用）
func cloneAsRoot(series *model.CalendarEvent) *model.CalendarEvent {
	return &model.CalendarEvent{
		CalendarID:  series.CalendarID,
		Title:       series.Title,
		Description: series.Description,
		StartTime:   series.StartTime,
		EndTime:     series.EndTime,
		AllDay:      series.AllDay,
		Timezone:    series.Timezone,
		Status:      series.Status,
		CategoryID:  series.CategoryID,
		LocationID:  series.LocationID,
		Metadata:    series.Metadata,
		CreatorID:   series.CreatorID,
		ApprovedBy:  series.ApprovedBy,
		ApprovedAt:  series.ApprovedAt,
	}
}

func copyRequests(requests []model.ResourceRequest, eventID string) []model.ResourceRequest {
	out := make([]model.ResourceRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, model.ResourceRequest{
			EventID:      eventID,
			ResourceType: r.ResourceType,
			ResourceID:   r.ResourceID,
			Quantity:     r.Quantity,
			Notes:        r.Notes,
		})
	}
	return out
}

func copyApprovals(approvals []model.EventApproval, eventID string) []model.EventApproval {
	out := make([]model.EventApproval, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, model.EventApproval{
			EventID:      eventID,
			Channel:      a.Channel,
			Status:       a.Status,
			ResponderID:  a.ResponderID,
			RespondedAt:  a.RespondedAt,
			RejectReason: a.RejectReason,
		})
	}
	return out
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
