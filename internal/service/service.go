package service

import (
	"go.uber.org/zap"

	"campus-calendar/config"
	"campus-calendar/internal/recurrence"
	"campus-calendar/internal/repository"
	"campus-calendar/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Event        EventService
	Category     CategoryService
	Location     LocationService
	Channels     ChannelConfigService
	User         UserService
	Subscription SubscriptionService
	Export       ExportService
	Import       ImportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	engine := recurrence.NewRRuleEngine()
	editor := NewSeriesEditor(repo, engine, logger)
	approvals := NewApprovalEngine(repo, logger)
	events := NewEventService(&cfg.Calendar, repo, engine, editor, approvals, logger)

	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, blacklist, logger),
		Event:        events,
		Category:     NewCategoryService(repo, logger),
		Location:     NewLocationService(repo, logger),
		Channels:     NewChannelConfigService(repo, logger),
		User:         NewUserService(repo, logger),
		Subscription: NewSubscriptionService(repo, logger),
		Export:       NewExportService(repo, events, logger),
		Import:       NewImportService(repo, engine, approvals, logger),
	}
}
