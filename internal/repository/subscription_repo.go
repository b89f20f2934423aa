package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-calendar/internal/model"
)

// SubscriptionRepository 日历订阅偏好数据访问接口
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.CalendarSubscription) error
	ListByUser(ctx context.Context, userID string) ([]model.CalendarSubscription, error)
}

type subscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

// Upsert 按 (user_id, calendar_id) 写入订阅状态
func (r *subscriptionRepo) Upsert(ctx context.Context, sub *model.CalendarSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "calendar_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subscribed", "updated_at", "updated_by"}),
		}).
		Create(sub).Error
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userID string) ([]model.CalendarSubscription, error) {
	var subs []model.CalendarSubscription
	err := r.db.WithContext(ctx).
		Preload("Calendar").
		Where("user_id = ?", userID).
		Find(&subs).Error
	return subs, err
}
