package dto

// ── 分类模块 DTO ──

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=50"`
	Color     string `json:"color"      binding:"omitempty,hexcolor"`
	SortOrder int    `json:"sort_order" binding:"omitempty,min=0"`
}

// UpdateCategoryRequest 更新分类请求
type UpdateCategoryRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=1,max=50"`
	Color     *string `json:"color"      binding:"omitempty,hexcolor"`
	SortOrder *int    `json:"sort_order" binding:"omitempty,min=0"`
}

// CategoryResponse 分类响应
type CategoryResponse struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendar_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	SortOrder  int    `json:"sort_order"`
}
