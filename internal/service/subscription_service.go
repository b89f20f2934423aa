package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/repository"
)

// SubscriptionService 用户日历订阅偏好
type SubscriptionService interface {
	Toggle(ctx context.Context, userID, calendarID string, subscribed bool) (*dto.SubscriptionResponse, error)
	List(ctx context.Context, userID string) ([]dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubscriptionService 创建 SubscriptionService 实例
func NewSubscriptionService(repo *repository.Repository, logger *zap.Logger) SubscriptionService {
	return &subscriptionService{repo: repo, logger: logger}
}

// Toggle 设置订阅状态，重复调用结果相同
func (s *subscriptionService) Toggle(ctx context.Context, userID, calendarID string, subscribed bool) (*dto.SubscriptionResponse, error) {
	calendar, err := s.repo.Calendar.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		s.logger.Error("查询日历失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	sub := &model.CalendarSubscription{
		UserID:     userID,
		CalendarID: calendarID,
		Subscribed: subscribed,
	}
	sub.StampCreated(userID)

	if err := s.repo.Subscription.Upsert(ctx, sub); err != nil {
		s.logger.Error("更新订阅失败",
			zap.String("user_id", userID),
			zap.String("calendar_id", calendarID),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.SubscriptionResponse{
		CalendarID:   calendarID,
		CalendarName: calendar.Name,
		Subscribed:   subscribed,
	}, nil
}

func (s *subscriptionService) List(ctx context.Context, userID string) ([]dto.SubscriptionResponse, error) {
	list, err := s.repo.Subscription.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询订阅列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.SubscriptionResponse, 0, len(list))
	for _, sub := range list {
		item := dto.SubscriptionResponse{CalendarID: sub.CalendarID, Subscribed: sub.Subscribed}
		if sub.Calendar != nil {
			item.CalendarName = sub.Calendar.Name
		}
		items = append(items, item)
	}
	return items, nil
}
