package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/repository"
)

// ── 审批渠道配置业务错误 ──

var (
	ErrInvalidChannel = errors.New("未知的审批渠道")
)

// ChannelConfigService 组织级审批渠道配置业务接口
//
// 配置只影响之后提交的日程，已生成的审批记录不会回溯调整。
type ChannelConfigService interface {
	List(ctx context.Context, organizationID string) ([]dto.ChannelConfigResponse, error)
	Update(ctx context.Context, organizationID string, channel model.ApprovalChannel, req *dto.UpdateChannelConfigRequest, callerID string) (*dto.ChannelConfigResponse, error)
}

type channelConfigService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewChannelConfigService 创建 ChannelConfigService 实例
func NewChannelConfigService(repo *repository.Repository, logger *zap.Logger) ChannelConfigService {
	return &channelConfigService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *channelConfigService) List(ctx context.Context, organizationID string) ([]dto.ChannelConfigResponse, error) {
	configs, err := s.repo.ChannelConfig.ListByOrganization(ctx, organizationID)
	if err != nil {
		s.logger.Error("查询审批渠道配置失败", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ChannelConfigResponse, 0, len(configs))
	for i := range configs {
		result = append(result, toChannelConfigResponse(&configs[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改渠道配置；组织尚未配置该渠道时以必选、启用为默认值新建
func (s *channelConfigService) Update(ctx context.Context, organizationID string, channel model.ApprovalChannel, req *dto.UpdateChannelConfigRequest, callerID string) (*dto.ChannelConfigResponse, error) {
	if !channel.IsValid() {
		return nil, ErrInvalidChannel
	}

	configs, err := s.repo.ChannelConfig.ListByOrganization(ctx, organizationID)
	if err != nil {
		s.logger.Error("查询审批渠道配置失败", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, err
	}

	cfg := &model.ApprovalChannelConfig{
		OrganizationID: organizationID,
		Channel:        channel,
		Mode:           model.ChannelModeRequired,
		IsActive:       true,
	}
	cfg.StampCreated(callerID)
	for i := range configs {
		if configs[i].Channel == channel {
			cfg = &configs[i]
			break
		}
	}

	if req.Mode != nil {
		cfg.Mode = *req.Mode
	}
	if req.AutoApproveIfNoResource != nil {
		cfg.AutoApproveIfNoResource = *req.AutoApproveIfNoResource
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		cfg.SortOrder = *req.SortOrder
	}

	cfg.StampUpdated(callerID)

	if err := s.repo.ChannelConfig.Upsert(ctx, cfg); err != nil {
		s.logger.Error("更新审批渠道配置失败", zap.String("channel", string(channel)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("审批渠道配置已更新",
		zap.String("organization_id", organizationID),
		zap.String("channel", string(channel)),
		zap.String("mode", cfg.Mode),
		zap.Bool("is_active", cfg.IsActive),
	)

	resp := toChannelConfigResponse(cfg)
	return &resp, nil
}

func toChannelConfigResponse(cfg *model.ApprovalChannelConfig) dto.ChannelConfigResponse {
	return dto.ChannelConfigResponse{
		Channel:                 string(cfg.Channel),
		Mode:                    cfg.Mode,
		AutoApproveIfNoResource: cfg.AutoApproveIfNoResource,
		IsActive:                cfg.IsActive,
		SortOrder:               cfg.SortOrder,
		UpdatedAt:               cfg.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
