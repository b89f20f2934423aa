package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-calendar/internal/model"
	pkgerrors "campus-calendar/pkg/errors"
)

// EventRepository 日程数据访问接口
type EventRepository interface {
	Create(ctx context.Context, event *model.CalendarEvent) error
	GetByID(ctx context.Context, id string) (*model.CalendarEvent, error)
	// GetByIDForUpdate 在事务内对日程行加 FOR UPDATE 锁，审批决策据此串行化
	GetByIDForUpdate(ctx context.Context, id string) (*model.CalendarEvent, error)
	// ListInRange 返回可能在窗口内产生实例的记录：与窗口重叠的单次日程、锚点不晚于窗口结束的重复系列，
	// 以及锚点在窗口之后但有例外被移入窗口的重复系列
	ListInRange(ctx context.Context, calendarIDs []string, start, end time.Time, statuses []string) ([]model.CalendarEvent, error)
	// Update 乐观锁更新，版本不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, event *model.CalendarEvent) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.CalendarEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.CalendarEvent, error) {
	var event model.CalendarEvent
	err := r.db.WithContext(ctx).
		Preload("Calendar").
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.CalendarEvent, error) {
	var event model.CalendarEvent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) ListInRange(ctx context.Context, calendarIDs []string, start, end time.Time, statuses []string) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	if len(calendarIDs) == 0 {
		return events, nil
	}

	movedIn := r.db.Model(&model.EventException{}).
		Select("parent_event_id").
		Where("start_time <= ? AND end_time >= ? AND NOT cancelled", end, start)

	db := r.db.WithContext(ctx).
		Where("calendar_id IN ?", calendarIDs).
		Where(
			r.db.Where("rrule IS NULL AND start_time <= ? AND end_time >= ?", end, start).
				Or("rrule IS NOT NULL AND start_time <= ?", end).
				Or("rrule IS NOT NULL AND event_id IN (?)", movedIn),
		)
	if len(statuses) > 0 {
		db = db.Where("status IN ?", statuses)
	}

	err := db.Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *eventRepo) Update(ctx context.Context, event *model.CalendarEvent) error {
	oldVersion, next := event.Version, event.NextVersion()
	result := r.db.WithContext(ctx).
		Model(event).
		Where("event_id = ? AND version = ?", event.EventID, oldVersion).
		Updates(map[string]interface{}{
			"title":       event.Title,
			"description": event.Description,
			"start_time":  event.StartTime,
			"end_time":    event.EndTime,
			"all_day":     event.AllDay,
			"timezone":    event.Timezone,
			"rrule":       event.RRule,
			"status":      event.Status,
			"category_id": event.CategoryID,
			"location_id": event.LocationID,
			"metadata":    event.Metadata,
			"approved_by": event.ApprovedBy,
			"approved_at": event.ApprovedAt,
			"updated_by":  event.UpdatedBy,
			"version":     next,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	event.Version = next
	return nil
}

func (r *eventRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CalendarEvent{}).
			Where("event_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", id).Delete(&model.CalendarEvent{}).Error
	})
}
