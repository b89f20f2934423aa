package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/recurrence"
	"campus-calendar/internal/repository"
)

// ── 导入模块业务错误 ──

var (
	ErrICSParseFailed = errors.New("ICS 文件解析失败")
	ErrICSEmpty       = errors.New("ICS 文件中没有可导入的日程")
)

// ImportService ICS 导入业务接口
//
// 设计说明：
//   - 每个 UID 对应一条日程（带 RRULE 时为系列根），在独立事务中写入
//   - 单个系列失败不影响其他系列，失败原因按 UID 返回
//   - 导入日程的初始状态与手工创建一致（见 ApprovalEngine.InitialStatus）
type ImportService interface {
	ImportICS(ctx context.Context, calendarID string, reader io.Reader, actor Actor) (*dto.ImportICSResponse, error)
}

type importService struct {
	repo      *repository.Repository
	engine    recurrence.RuleEngine
	approvals ApprovalEngine
	logger    *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, engine recurrence.RuleEngine, approvals ApprovalEngine, logger *zap.Logger) ImportService {
	return &importService{repo: repo, engine: engine, approvals: approvals, logger: logger}
}

// ════════════════════════════════════════════════════════════
// ImportICS 导入 ICS 日历
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 确认日历存在，以日历时区解释浮动时间
//   2. 解析 ICS 并按 UID 归并
//   3. 逐个系列：校验规则 → 生成实例覆盖 → 事务写入

func (s *importService) ImportICS(ctx context.Context, calendarID string, reader io.Reader, actor Actor) (*dto.ImportICSResponse, error) {
	calendar, err := s.repo.Calendar.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		s.logger.Error("查询日历失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	series, parseErrs, err := ParseICS(reader, firstNonEmpty(calendar.Timezone))
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, ErrICSParseFailed
	}
	if len(series) == 0 && len(parseErrs) == 0 {
		return nil, ErrICSEmpty
	}

	resp := &dto.ImportICSResponse{
		Total:    len(series) + len(parseErrs),
		EventIDs: []string{},
	}
	for _, pe := range parseErrs {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportICSError{UID: pe.UID, Reason: pe.Reason})
	}

	status := s.approvals.InitialStatus(actor.CanPublish, calendar)
	for i := range series {
		event, exceptions, err := s.buildSeries(calendarID, &series[i], status, actor)
		if err == nil {
			err = s.persist(ctx, event, exceptions)
		}
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportICSError{UID: series[i].UID, Reason: err.Error()})
			continue
		}
		resp.Success++
		resp.EventIDs = append(resp.EventIDs, event.EventID)
	}

	s.logger.Info("ICS 导入完成",
		zap.String("calendar_id", calendarID),
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// buildSeries 将解析结果转为日程与实例覆盖
func (s *importService) buildSeries(calendarID string, series *parsedSeries, status string, actor Actor) (*model.CalendarEvent, []model.EventException, error) {
	m := series.Master
	if m.Cancelled {
		return nil, nil, fmt.Errorf("日程已取消")
	}
	if !m.End.After(m.Start) {
		return nil, nil, ErrInvalidTimeRange
	}

	event := &model.CalendarEvent{
		CalendarID:  calendarID,
		Title:       m.Title,
		Description: m.Description,
		StartTime:   m.Start,
		EndTime:     m.End,
		AllDay:      m.AllDay,
		Timezone:    m.Timezone,
		Status:      status,
		CreatorID:   actor.UserID,
	}
	event.StampCreated(actor.UserID)
	if status == model.EventStatusConfirmed {
		now := time.Now()
		event.ApprovedBy = &actor.UserID
		event.ApprovedAt = &now
	}

	if m.RRule == "" {
		return event, nil, nil
	}
	normalized, err := s.engine.Normalize(m.RRule, m.Start)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	event.RRule = &normalized

	// 同一发生时间只保留一条覆盖，EXDATE 优先于 RECURRENCE-ID
	taken := make(map[int64]bool)
	var exceptions []model.EventException
	for _, ex := range m.ExDates {
		if !s.isOccurrence(event, ex) || taken[ex.Unix()] {
			continue
		}
		taken[ex.Unix()] = true
		exceptions = append(exceptions, model.EventException{
			OriginalStart: ex,
			Title:         event.Title,
			Description:   event.Description,
			StartTime:     ex,
			EndTime:       ex.Add(event.Duration()),
			AllDay:        event.AllDay,
			Cancelled:     true,
		})
	}
	for i := range series.Overrides {
		ov := &series.Overrides[i]
		rid := *ov.RecurrenceID
		if taken[rid.Unix()] {
			continue
		}
		if !s.isOccurrence(event, rid) || !ov.End.After(ov.Start) {
			s.logger.Warn("忽略无效的 RECURRENCE-ID 覆盖",
				zap.String("uid", series.UID),
				zap.Time("recurrence_id", rid),
			)
			continue
		}
		taken[rid.Unix()] = true
		exceptions = append(exceptions, model.EventException{
			OriginalStart: rid,
			Title:         ov.Title,
			Description:   ov.Description,
			StartTime:     ov.Start,
			EndTime:       ov.End,
			AllDay:        ov.AllDay,
			Cancelled:     ov.Cancelled,
		})
	}
	for i := range exceptions {
		exceptions[i].StampCreated(actor.UserID)
	}
	return event, exceptions, nil
}

func (s *importService) isOccurrence(event *model.CalendarEvent, t time.Time) bool {
	ok, err := s.engine.IsOccurrence(*event.RRule, event.StartTime, t)
	return err == nil && ok
}

// persist 单个系列的日程与覆盖在同一事务中写入
func (s *importService) persist(ctx context.Context, event *model.CalendarEvent, exceptions []model.EventException) error {
	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Event.Create(ctx, event); err != nil {
			return err
		}
		for i := range exceptions {
			exceptions[i].ParentEventID = event.EventID
			if err := txRepo.Exception.Create(ctx, &exceptions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("写入导入日程失败", zap.String("title", event.Title), zap.Error(err))
		return fmt.Errorf("写入失败: %w", err)
	}
	return nil
}
