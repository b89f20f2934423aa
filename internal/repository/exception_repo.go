package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"campus-calendar/internal/model"
)

// ExceptionRepository 单次实例覆盖数据访问接口
type ExceptionRepository interface {
	Create(ctx context.Context, ex *model.EventException) error
	// GetBySlot 按 (系列根, 原定开始时间) 查找覆盖记录
	GetBySlot(ctx context.Context, parentEventID string, originalStart time.Time) (*model.EventException, error)
	ListByParents(ctx context.Context, parentEventIDs []string) ([]model.EventException, error)
	// ListFrom 返回原定开始时间不早于 from 的覆盖记录
	ListFrom(ctx context.Context, parentEventID string, from time.Time) ([]model.EventException, error)
	Update(ctx context.Context, ex *model.EventException) error
	Delete(ctx context.Context, id string) error
	DeleteByParent(ctx context.Context, parentEventID string) error
	DeleteFrom(ctx context.Context, parentEventID string, from time.Time) error
}

type exceptionRepo struct {
	db *gorm.DB
}

func NewExceptionRepo(db *gorm.DB) ExceptionRepository {
	return &exceptionRepo{db: db}
}

func (r *exceptionRepo) Create(ctx context.Context, ex *model.EventException) error {
	return r.db.WithContext(ctx).Create(ex).Error
}

func (r *exceptionRepo) GetBySlot(ctx context.Context, parentEventID string, originalStart time.Time) (*model.EventException, error) {
	var ex model.EventException
	err := r.db.WithContext(ctx).
		Where("parent_event_id = ? AND original_start = ?", parentEventID, originalStart.UTC()).
		First(&ex).Error
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *exceptionRepo) ListByParents(ctx context.Context, parentEventIDs []string) ([]model.EventException, error) {
	var list []model.EventException
	if len(parentEventIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("parent_event_id IN ?", parentEventIDs).
		Order("original_start ASC").
		Find(&list).Error
	return list, err
}

func (r *exceptionRepo) ListFrom(ctx context.Context, parentEventID string, from time.Time) ([]model.EventException, error) {
	var list []model.EventException
	err := r.db.WithContext(ctx).
		Where("parent_event_id = ? AND original_start >= ?", parentEventID, from.UTC()).
		Order("original_start ASC").
		Find(&list).Error
	return list, err
}

func (r *exceptionRepo) Update(ctx context.Context, ex *model.EventException) error {
	return r.db.WithContext(ctx).
		Model(ex).
		Where("exception_id = ?", ex.ExceptionID).
		Updates(map[string]interface{}{
			"parent_event_id": ex.ParentEventID,
			"original_start":  ex.OriginalStart,
			"title":           ex.Title,
			"description":     ex.Description,
			"start_time":      ex.StartTime,
			"end_time":        ex.EndTime,
			"all_day":         ex.AllDay,
			"category_id":     ex.CategoryID,
			"location_id":     ex.LocationID,
			"metadata":        ex.Metadata,
			"cancelled":       ex.Cancelled,
			"updated_by":      ex.UpdatedBy,
		}).Error
}

func (r *exceptionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("exception_id = ?", id).
		Delete(&model.EventException{}).Error
}

func (r *exceptionRepo) DeleteByParent(ctx context.Context, parentEventID string) error {
	return r.db.WithContext(ctx).
		Where("parent_event_id = ?", parentEventID).
		Delete(&model.EventException{}).Error
}

func (r *exceptionRepo) DeleteFrom(ctx context.Context, parentEventID string, from time.Time) error {
	return r.db.WithContext(ctx).
		Where("parent_event_id = ? AND original_start >= ?", parentEventID, from.UTC()).
		Delete(&model.EventException{}).Error
}
