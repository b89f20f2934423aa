package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-calendar/internal/model"
	pkgerrors "campus-calendar/pkg/errors"
)

// ApprovalRepository 日程审批记录数据访问接口
type ApprovalRepository interface {
	BatchCreate(ctx context.Context, approvals []model.EventApproval) error
	ListByEvent(ctx context.Context, eventID string) ([]model.EventApproval, error)
	GetByEventChannel(ctx context.Context, eventID string, channel model.ApprovalChannel) (*model.EventApproval, error)
	// Respond 仅当记录仍为 fromStatus 时写入应答，否则返回 ErrOptimisticLock
	Respond(ctx context.Context, approval *model.EventApproval, fromStatus string) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

// ChannelConfigRepository 组织级审批渠道配置数据访问接口
type ChannelConfigRepository interface {
	ListActiveByOrganization(ctx context.Context, organizationID string) ([]model.ApprovalChannelConfig, error)
	// ListByOrganization 含停用渠道，供管理端展示
	ListByOrganization(ctx context.Context, organizationID string) ([]model.ApprovalChannelConfig, error)
	// Upsert 按 (organization_id, channel) 写入配置
	Upsert(ctx context.Context, cfg *model.ApprovalChannelConfig) error
}

// ── Approval Repository 实现 ──

type approvalRepo struct {
	db *gorm.DB
}

func NewApprovalRepo(db *gorm.DB) ApprovalRepository {
	return &approvalRepo{db: db}
}

func (r *approvalRepo) BatchCreate(ctx context.Context, approvals []model.EventApproval) error {
	if len(approvals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&approvals).Error
}

func (r *approvalRepo) ListByEvent(ctx context.Context, eventID string) ([]model.EventApproval, error) {
	var list []model.EventApproval
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC, channel ASC").
		Find(&list).Error
	return list, err
}

func (r *approvalRepo) GetByEventChannel(ctx context.Context, eventID string, channel model.ApprovalChannel) (*model.EventApproval, error) {
	var approval model.EventApproval
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND channel = ?", eventID, channel).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepo) Respond(ctx context.Context, approval *model.EventApproval, fromStatus string) error {
	result := r.db.WithContext(ctx).
		Model(&model.EventApproval{}).
		Where("approval_id = ? AND status = ?", approval.ApprovalID, fromStatus).
		Updates(map[string]interface{}{
			"status":        approval.Status,
			"responder_id":  approval.ResponderID,
			"responded_at":  approval.RespondedAt,
			"reject_reason": approval.RejectReason,
			"updated_by":    approval.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *approvalRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.EventApproval{}).Error
}

// ── ChannelConfig Repository 实现 ──

type channelConfigRepo struct {
	db *gorm.DB
}

func NewChannelConfigRepo(db *gorm.DB) ChannelConfigRepository {
	return &channelConfigRepo{db: db}
}

func (r *channelConfigRepo) ListActiveByOrganization(ctx context.Context, organizationID string) ([]model.ApprovalChannelConfig, error) {
	var list []model.ApprovalChannelConfig
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Order("sort_order ASC").
		Find(&list).Error
	return list, err
}

func (r *channelConfigRepo) ListByOrganization(ctx context.Context, organizationID string) ([]model.ApprovalChannelConfig, error) {
	var list []model.ApprovalChannelConfig
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("sort_order ASC").
		Find(&list).Error
	return list, err
}

func (r *channelConfigRepo) Upsert(ctx context.Context, cfg *model.ApprovalChannelConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}, {Name: "channel"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mode", "auto_approve_if_no_resource", "is_active", "sort_order", "updated_at", "updated_by",
			}),
		}).
		Create(cfg).Error
}
