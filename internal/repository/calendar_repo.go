package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-calendar/internal/model"
)

// CalendarRepository 日历数据访问接口
type CalendarRepository interface {
	GetByID(ctx context.Context, id string) (*model.Calendar, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Calendar, error)
}

type calendarRepo struct {
	db *gorm.DB
}

func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) GetByID(ctx context.Context, id string) (*model.Calendar, error) {
	var cal model.Calendar
	err := r.db.WithContext(ctx).
		Where("calendar_id = ?", id).
		First(&cal).Error
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

func (r *calendarRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Calendar, error) {
	var cals []model.Calendar
	if len(ids) == 0 {
		return cals, nil
	}
	err := r.db.WithContext(ctx).
		Where("calendar_id IN ?", ids).
		Order("name ASC").
		Find(&cals).Error
	return cals, err
}
