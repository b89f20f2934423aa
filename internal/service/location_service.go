package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/repository"
)

// ── 场地模块业务错误 ──

var (
	ErrLocationNotFound    = errors.New("场地不存在")
	ErrLocationInactive    = errors.New("场地已停用")
	ErrInvalidResourceType = errors.New("无效的场地类型")
)

// LocationService 场地业务接口
//
// 场地按组织隔离，其他组织的场地一律视为不存在。
type LocationService interface {
	Create(ctx context.Context, organizationID string, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error)
	GetByID(ctx context.Context, organizationID, id string) (*dto.LocationResponse, error)
	List(ctx context.Context, organizationID string, req *dto.LocationListRequest) ([]dto.LocationResponse, error)
	Update(ctx context.Context, organizationID, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error)
	Delete(ctx context.Context, organizationID, id string, callerID string) error
}

type locationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(repo *repository.Repository, logger *zap.Logger) LocationService {
	return &locationService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, organizationID string, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	loc := &model.Location{
		OrganizationID: organizationID,
		Name:           req.Name,
		Building:       req.Building,
		ResourceType:   req.ResourceType,
		Capacity:       req.Capacity,
		IsActive:       true,
	}
	if loc.ResourceType == "" {
		loc.ResourceType = model.ResourceTypeRoom
	}
	loc.StampCreated(callerID)

	if err := s.repo.Location.Create(ctx, loc); err != nil {
		s.logger.Error("创建场地失败", zap.Error(err))
		return nil, err
	}

	return toLocationResponse(loc), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *locationService) GetByID(ctx context.Context, organizationID, id string) (*dto.LocationResponse, error) {
	loc, err := loadLocation(ctx, s.repo, s.logger, organizationID, id)
	if err != nil {
		return nil, err
	}
	return toLocationResponse(loc), nil
}

// ────────────────────── List ──────────────────────

func (s *locationService) List(ctx context.Context, organizationID string, req *dto.LocationListRequest) ([]dto.LocationResponse, error) {
	locations, err := s.repo.Location.List(ctx, &repository.LocationListFilters{
		OrganizationID:  organizationID,
		IncludeInactive: req.IncludeInactive,
		ResourceType:    req.ResourceType,
		MinCapacity:     req.MinCapacity,
		Keyword:         strings.TrimSpace(req.Keyword),
	})
	if err != nil {
		s.logger.Error("列出场地失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.LocationResponse, 0, len(locations))
	for i := range locations {
		result = append(result, *toLocationResponse(&locations[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, organizationID, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	loc, err := loadLocation(ctx, s.repo, s.logger, organizationID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		loc.Name = *req.Name
	}
	if req.Building != nil {
		loc.Building = *req.Building
	}
	if req.ResourceType != nil {
		if !model.IsVenueType(*req.ResourceType) {
			return nil, ErrInvalidResourceType
		}
		loc.ResourceType = *req.ResourceType
	}
	if req.Capacity != nil {
		loc.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}

	loc.StampUpdated(callerID)

	if err := s.repo.Location.Update(ctx, loc); err != nil {
		s.logger.Error("更新场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toLocationResponse(loc), nil
}

// ────────────────────── Delete ──────────────────────

func (s *locationService) Delete(ctx context.Context, organizationID, id string, callerID string) error {
	if _, err := loadLocation(ctx, s.repo, s.logger, organizationID, id); err != nil {
		return err
	}

	if err := s.repo.Location.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除场地失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

// loadLocation 按组织加载场地，跨组织访问返回 ErrLocationNotFound
func loadLocation(ctx context.Context, repo *repository.Repository, logger *zap.Logger, organizationID, id string) (*model.Location, error) {
	loc, err := repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		logger.Error("查询场地失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if loc.OrganizationID != organizationID {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

// checkLocationUsable 日程引用的场地必须属于日历所在组织且处于启用状态
func checkLocationUsable(ctx context.Context, repo *repository.Repository, logger *zap.Logger, organizationID, id string) error {
	loc, err := loadLocation(ctx, repo, logger, organizationID, id)
	if err != nil {
		return err
	}
	if !loc.IsActive {
		return ErrLocationInactive
	}
	return nil
}

func toLocationResponse(loc *model.Location) *dto.LocationResponse {
	resp := &dto.LocationResponse{
		ID:           loc.LocationID,
		Name:         loc.Name,
		Building:     loc.Building,
		ResourceType: loc.ResourceType,
		Capacity:     loc.Capacity,
		IsActive:     loc.IsActive,
		CreatedAt:    loc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    loc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if ch, ok := model.ChannelForResourceType(loc.ResourceType); ok {
		resp.ApprovalChannel = string(ch)
	}
	return resp
}
