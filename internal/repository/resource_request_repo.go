package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-calendar/internal/model"
)

// ResourceRequestRepository 日程资源申请数据访问接口
type ResourceRequestRepository interface {
	BatchCreate(ctx context.Context, requests []model.ResourceRequest) error
	ListByEvent(ctx context.Context, eventID string) ([]model.ResourceRequest, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}

type resourceRequestRepo struct {
	db *gorm.DB
}

func NewResourceRequestRepo(db *gorm.DB) ResourceRequestRepository {
	return &resourceRequestRepo{db: db}
}

func (r *resourceRequestRepo) BatchCreate(ctx context.Context, requests []model.ResourceRequest) error {
	if len(requests) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&requests).Error
}

func (r *resourceRequestRepo) ListByEvent(ctx context.Context, eventID string) ([]model.ResourceRequest, error) {
	var list []model.ResourceRequest
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Find(&list).Error
	return list, err
}

func (r *resourceRequestRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.ResourceRequest{}).Error
}
