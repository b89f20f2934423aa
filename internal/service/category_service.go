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

const defaultCategoryColor = "#3b82f6"

// CategoryService 日程分类业务接口（分类归属于单个日历）
type CategoryService interface {
	Create(ctx context.Context, calendarID string, req *dto.CreateCategoryRequest, actorID string) (*dto.CategoryResponse, error)
	List(ctx context.Context, calendarID string) ([]dto.CategoryResponse, error)
	Update(ctx context.Context, calendarID, id string, req *dto.UpdateCategoryRequest, actorID string) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, calendarID, id string, actorID string) error
}

type categoryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCategoryService 创建 CategoryService 实例
func NewCategoryService(repo *repository.Repository, logger *zap.Logger) CategoryService {
	return &categoryService{repo: repo, logger: logger}
}

func (s *categoryService) Create(ctx context.Context, calendarID string, req *dto.CreateCategoryRequest, actorID string) (*dto.CategoryResponse, error) {
	if err := s.checkCalendar(ctx, calendarID); err != nil {
		return nil, err
	}

	color := req.Color
	if color == "" {
		color = defaultCategoryColor
	}

	category := &model.Category{
		CalendarID: calendarID,
		Name:       req.Name,
		Color:      color,
		SortOrder:  req.SortOrder,
	}
	category.StampCreated(actorID)

	if err := s.repo.Category.Create(ctx, category); err != nil {
		s.logger.Error("创建分类失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("分类已创建",
		zap.String("category_id", category.CategoryID),
		zap.String("calendar_id", calendarID),
	)
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *categoryService) List(ctx context.Context, calendarID string) ([]dto.CategoryResponse, error) {
	if err := s.checkCalendar(ctx, calendarID); err != nil {
		return nil, err
	}

	list, err := s.repo.Category.ListByCalendar(ctx, calendarID)
	if err != nil {
		s.logger.Error("查询分类列表失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.CategoryResponse, 0, len(list))
	for i := range list {
		items = append(items, toCategoryResponse(&list[i]))
	}
	return items, nil
}

func (s *categoryService) Update(ctx context.Context, calendarID, id string, req *dto.UpdateCategoryRequest, actorID string) (*dto.CategoryResponse, error) {
	category, err := s.load(ctx, calendarID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Color != nil {
		category.Color = *req.Color
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	category.StampUpdated(actorID)

	if err := s.repo.Category.Update(ctx, category); err != nil {
		s.logger.Error("更新分类失败", zap.String("category_id", id), zap.Error(err))
		return nil, err
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

// Delete 软删除分类；引用该分类的日程保留 category_id，展示时按无分类处理
func (s *categoryService) Delete(ctx context.Context, calendarID, id string, actorID string) error {
	if _, err := s.load(ctx, calendarID, id); err != nil {
		return err
	}

	if err := s.repo.Category.Delete(ctx, id, actorID); err != nil {
		s.logger.Error("删除分类失败", zap.String("category_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("分类已删除", zap.String("category_id", id), zap.String("deleted_by", actorID))
	return nil
}

// ── 内部辅助方法 ──

func (s *categoryService) checkCalendar(ctx context.Context, calendarID string) error {
	if _, err := s.repo.Calendar.GetByID(ctx, calendarID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCalendarNotFound
		}
		s.logger.Error("查询日历失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return err
	}
	return nil
}

// load 查询分类并校验归属，跨日历访问按不存在处理
func (s *categoryService) load(ctx context.Context, calendarID, id string) (*model.Category, error) {
	category, err := s.repo.Category.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		s.logger.Error("查询分类失败", zap.String("category_id", id), zap.Error(err))
		return nil, err
	}
	if category.CalendarID != calendarID {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func toCategoryResponse(c *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:         c.CategoryID,
		CalendarID: c.CalendarID,
		Name:       c.Name,
		Color:      c.Color,
		SortOrder:  c.SortOrder,
	}
}
