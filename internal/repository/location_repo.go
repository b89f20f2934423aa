package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-calendar/internal/model"
)

// LocationListFilters 场地列表筛选条件
type LocationListFilters struct {
	OrganizationID  string
	IncludeInactive bool
	ResourceType    string
	MinCapacity     int // 容量为 0 的场地视为不限，总是满足
	Keyword         string
}

// LocationRepository 场地数据访问接口
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	List(ctx context.Context, filters *LocationListFilters) ([]model.Location, error)
	Update(ctx context.Context, loc *model.Location) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo 创建 LocationRepository 实例
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	var loc model.Location
	if err := r.db.WithContext(ctx).First(&loc, "location_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *locationRepo) List(ctx context.Context, filters *LocationListFilters) ([]model.Location, error) {
	db := r.db.WithContext(ctx).Where("organization_id = ?", filters.OrganizationID)
	if !filters.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if filters.ResourceType != "" {
		db = db.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.MinCapacity > 0 {
		db = db.Where("capacity = 0 OR capacity >= ?", filters.MinCapacity)
	}
	if filters.Keyword != "" {
		kw := "%" + filters.Keyword + "%"
		db = db.Where("name ILIKE ? OR building ILIKE ?", kw, kw)
	}

	var locations []model.Location
	err := db.Order("building ASC, name ASC").Find(&locations).Error
	return locations, err
}

// Update 仅写可编辑列，避免覆盖审计创建字段
func (r *locationRepo) Update(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("location_id = ?", loc.LocationID).
		Updates(map[string]interface{}{
			"name":          loc.Name,
			"building":      loc.Building,
			"resource_type": loc.ResourceType,
			"capacity":      loc.Capacity,
			"is_active":     loc.IsActive,
			"updated_by":    loc.UpdatedBy,
			"updated_at":    gorm.Expr("NOW()"),
		}).Error
}

func (r *locationRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("location_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
