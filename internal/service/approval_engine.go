package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/model"
	"campus-calendar/internal/repository"
	pkgerrors "campus-calendar/pkg/errors"
	"campus-calendar/pkg/metrics"
)

// ApprovalEngine 日程多渠道审批状态机
//
// 状态迁移：draft → pending_approval → confirmed | rejected。
// 日程的汇总状态始终由其各渠道记录的状态决定（见 AggregateStatus）。
type ApprovalEngine interface {
	// InitialStatus 创建日程时的初始状态
	InitialStatus(canPublish bool, calendar *model.Calendar) string
	// Submit 提交审批，创建渠道记录并切换状态（单事务）
	Submit(ctx context.Context, event *model.CalendarEvent, isCreator bool, actorID string) ([]model.EventApproval, error)
	Approve(ctx context.Context, eventID string, channel model.ApprovalChannel, approverID string) (*model.CalendarEvent, error)
	Reject(ctx context.Context, eventID string, channel model.ApprovalChannel, approverID, reason string) (*model.CalendarEvent, error)
	List(ctx context.Context, eventID string) ([]model.EventApproval, error)
}

type approvalEngine struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewApprovalEngine 创建 ApprovalEngine 实例
func NewApprovalEngine(repo *repository.Repository, logger *zap.Logger) ApprovalEngine {
	return &approvalEngine{repo: repo, logger: logger, now: time.Now}
}

// ── 纯函数 ──

// AggregateStatus 由渠道记录推导日程状态：任一驳回即 rejected，全部放行即 confirmed
func AggregateStatus(approvals []model.EventApproval) string {
	if len(approvals) == 0 {
		return model.EventStatusPendingApproval
	}
	cleared := 0
	for i := range approvals {
		if approvals[i].Status == model.ApprovalStatusRejected {
			return model.EventStatusRejected
		}
		if approvals[i].IsCleared() {
			cleared++
		}
	}
	if cleared == len(approvals) {
		return model.EventStatusConfirmed
	}
	return model.EventStatusPendingApproval
}

// PlanApprovals 根据组织渠道配置与资源申请计算需要创建的审批记录
//
// 日程引用的场地已由调用方折算为一条资源申请。
// 仅处理必选渠道。admin 渠道总是适用，其他渠道需存在对应类型的资源申请；
// 不适用且配置了自动通过的渠道写入 auto_approved，其余跳过。
// 结果为空时回退为一条待审批的 admin 记录。
func PlanApprovals(eventID string, configs []model.ApprovalChannelConfig, requests []model.ResourceRequest) []model.EventApproval {
	requested := make(map[model.ApprovalChannel]bool, len(requests))
	for _, req := range requests {
		if ch, ok := model.ChannelForResourceType(req.ResourceType); ok {
			requested[ch] = true
		}
	}

	seen := make(map[model.ApprovalChannel]bool, len(configs))
	var plan []model.EventApproval
	for i := range configs {
		cfg := &configs[i]
		if !cfg.IsActive || !cfg.IsRequired() || !cfg.Channel.IsValid() || seen[cfg.Channel] {
			continue
		}
		seen[cfg.Channel] = true

		applicable := cfg.Channel == model.ChannelAdmin || requested[cfg.Channel]
		switch {
		case applicable:
			plan = append(plan, newApproval(eventID, cfg.Channel, model.ApprovalStatusPending))
		case cfg.AutoApproveIfNoResource:
			plan = append(plan, newApproval(eventID, cfg.Channel, model.ApprovalStatusAutoApproved))
		}
	}

	if len(plan) == 0 {
		plan = append(plan, newApproval(eventID, model.ChannelAdmin, model.ApprovalStatusPending))
	}
	return plan
}

func newApproval(eventID string, channel model.ApprovalChannel, status string) model.EventApproval {
	return model.EventApproval{EventID: eventID, Channel: channel, Status: status}
}

// ── InitialStatus ──

func (s *approvalEngine) InitialStatus(canPublish bool, calendar *model.Calendar) string {
	if canPublish || (calendar != nil && !calendar.RequiresApproval) {
		return model.EventStatusConfirmed
	}
	return model.EventStatusDraft
}

// ── Submit ──

func (s *approvalEngine) Submit(ctx context.Context, event *model.CalendarEvent, isCreator bool, actorID string) ([]model.EventApproval, error) {
	// 权限检查先于任何读写
	if !isCreator {
		return nil, ErrNotEventCreator
	}
	if event.Status != model.EventStatusDraft {
		return nil, ErrEventNotDraft
	}

	calendar := event.Calendar
	if calendar == nil {
		var err error
		calendar, err = s.repo.Calendar.GetByID(ctx, event.CalendarID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCalendarNotFound
			}
			s.logger.Error("查询日历失败", zap.String("calendar_id", event.CalendarID), zap.Error(err))
			return nil, err
		}
	}

	configs, err := s.repo.ChannelConfig.ListActiveByOrganization(ctx, calendar.OrganizationID)
	if err != nil {
		s.logger.Error("查询审批渠道配置失败", zap.String("organization_id", calendar.OrganizationID), zap.Error(err))
		return nil, err
	}
	requests, err := s.repo.ResourceRequest.ListByEvent(ctx, event.EventID)
	if err != nil {
		s.logger.Error("查询资源申请失败", zap.String("event_id", event.EventID), zap.Error(err))
		return nil, err
	}

	if event.LocationID != nil {
		loc, err := s.repo.Location.GetByID(ctx, *event.LocationID)
		switch {
		case err == nil:
			requests = append(requests, loc.AsResourceRequest(event.EventID))
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.logger.Error("查询场地失败", zap.String("location_id", *event.LocationID), zap.Error(err))
			return nil, err
		}
	}

	plan := PlanApprovals(event.EventID, configs, requests)
	for i := range plan {
		plan[i].StampCreated(actorID)
	}

	// 全部自动通过时直接确认
	status := AggregateStatus(plan)
	event.Status = status
	event.StampUpdated(actorID)
	if status == model.EventStatusConfirmed {
		now := s.now()
		event.ApprovedAt = &now
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Approval.BatchCreate(ctx, plan); err != nil {
			return err
		}
		return txRepo.Event.Update(ctx, event)
	})
	if err != nil {
		event.Status = model.EventStatusDraft
		event.ApprovedAt = nil
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("提交审批失败", zap.String("event_id", event.EventID), zap.Error(err))
		return nil, err
	}

	metrics.RecordApprovalTransition(status)
	s.logger.Info("日程已提交审批",
		zap.String("event_id", event.EventID),
		zap.String("status", status),
		zap.Int("channels", len(plan)),
	)
	return plan, nil
}

// ── Approve / Reject ──

// Approve 在锁住日程行的事务内记录决策并重新汇总
//
// 并发审批不同渠道时按日程行串行，最后一个提交者一定能看到全部渠道已通过。
// 重复通过同一渠道时同样重新汇总，补齐此前未能提升的日程。
func (s *approvalEngine) Approve(ctx context.Context, eventID string, channel model.ApprovalChannel, approverID string) (*model.CalendarEvent, error) {
	var (
		event    *model.CalendarEvent
		promoted bool
	)
	now := s.now()
	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		var (
			approval *model.EventApproval
			err      error
		)
		event, approval, err = s.loadDecision(ctx, txRepo, eventID, channel)
		if err != nil {
			return err
		}

		switch {
		case approval.Status == model.ApprovalStatusApproved:
			// 按 (event, channel) 幂等
			if event.Status != model.EventStatusPendingApproval {
				return nil
			}
		case event.Status != model.EventStatusPendingApproval:
			return ErrEventNotPending
		case approval.Status != model.ApprovalStatusPending:
			return ErrApprovalNotPending
		default:
			approval.Status = model.ApprovalStatusApproved
			approval.ResponderID = &approverID
			approval.RespondedAt = &now
			approval.StampUpdated(approverID)
			if err := txRepo.Approval.Respond(ctx, approval, model.ApprovalStatusPending); err != nil {
				return err
			}
		}

		all, err := txRepo.Approval.ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if AggregateStatus(all) != model.EventStatusConfirmed {
			return nil
		}

		event.Status = model.EventStatusConfirmed
		event.ApprovedBy = &approverID
		event.ApprovedAt = &now
		event.StampUpdated(approverID)
		promoted = true
		return txRepo.Event.Update(ctx, event)
	})
	if err != nil {
		return nil, s.decisionError(err, "审批通过失败", eventID, channel)
	}

	if promoted {
		metrics.RecordApprovalTransition(model.EventStatusConfirmed)
		s.logger.Info("日程审批全部通过", zap.String("event_id", eventID), zap.String("approver", approverID))
	}
	return event, nil
}

func (s *approvalEngine) Reject(ctx context.Context, eventID string, channel model.ApprovalChannel, approverID, reason string) (*model.CalendarEvent, error) {
	var (
		event    *model.CalendarEvent
		replayed bool
	)
	now := s.now()
	// 任一渠道驳回立即生效，不等待其他渠道
	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		var (
			approval *model.EventApproval
			err      error
		)
		event, approval, err = s.loadDecision(ctx, txRepo, eventID, channel)
		if err != nil {
			return err
		}

		if approval.Status == model.ApprovalStatusRejected && event.Status == model.EventStatusRejected {
			replayed = true
			return nil
		}
		if event.Status != model.EventStatusPendingApproval {
			return ErrEventNotPending
		}
		if approval.Status != model.ApprovalStatusPending {
			return ErrApprovalNotPending
		}

		approval.Status = model.ApprovalStatusRejected
		approval.ResponderID = &approverID
		approval.RespondedAt = &now
		approval.RejectReason = reason
		approval.StampUpdated(approverID)
		if err := txRepo.Approval.Respond(ctx, approval, model.ApprovalStatusPending); err != nil {
			return err
		}
		event.Status = model.EventStatusRejected
		event.StampUpdated(approverID)
		return txRepo.Event.Update(ctx, event)
	})
	if err != nil {
		return nil, s.decisionError(err, "审批驳回失败", eventID, channel)
	}
	if replayed {
		return event, nil
	}

	metrics.RecordApprovalTransition(model.EventStatusRejected)
	s.logger.Info("日程审批被驳回",
		zap.String("event_id", eventID),
		zap.String("channel", string(channel)),
	)
	return event, nil
}

func (s *approvalEngine) List(ctx context.Context, eventID string) ([]model.EventApproval, error) {
	list, err := s.repo.Approval.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询审批记录失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ── 内部辅助方法 ──

// loadDecision 在事务内锁住日程行并读取该渠道的审批记录
func (s *approvalEngine) loadDecision(ctx context.Context, repo *repository.Repository, eventID string, channel model.ApprovalChannel) (*model.CalendarEvent, *model.EventApproval, error) {
	event, err := repo.Event.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, err
	}

	if !channel.IsValid() {
		return nil, nil, ErrApprovalNotFound
	}

	approval, err := repo.Approval.GetByEventChannel(ctx, eventID, channel)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrApprovalNotFound
		}
		return nil, nil, err
	}
	return event, approval, nil
}

// decisionError 业务错误原样返回；乐观锁冲突说明记录已被其他请求处理；其余记录日志
func (s *approvalEngine) decisionError(err error, msg, eventID string, channel model.ApprovalChannel) error {
	switch {
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrApprovalNotFound),
		errors.Is(err, ErrEventNotPending), errors.Is(err, ErrApprovalNotPending):
		return err
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return ErrApprovalNotPending
	}
	s.logger.Error(msg,
		zap.String("event_id", eventID),
		zap.String("channel", string(channel)),
		zap.Error(err),
	)
	return err
}
