package dto

import (
	"time"

	"campus-calendar/internal/model"
)

// ── 日程模块 DTO ──

// ResourceRequestItem 创建日程时附带的资源申请
type ResourceRequestItem struct {
	ResourceType string  `json:"resource_type" binding:"required,oneof=facility room av_equipment custodial security athletics_venue"`
	ResourceID   *string `json:"resource_id"   binding:"omitempty,uuid"`
	Quantity     int     `json:"quantity"      binding:"omitempty,min=1"`
	Notes        string  `json:"notes"         binding:"omitempty,max=500"`
}

// CreateEventRequest 创建日程请求
type CreateEventRequest struct {
	Title            string                `json:"title"             binding:"required,min=1,max=200"`
	Description      string                `json:"description"       binding:"omitempty,max=5000"`
	StartTime        time.Time             `json:"start_time"        binding:"required"`
	EndTime          time.Time             `json:"end_time"          binding:"required"`
	AllDay           bool                  `json:"all_day"`
	Timezone         string                `json:"timezone"          binding:"omitempty,max=64"`
	RRule            *string               `json:"rrule"             binding:"omitempty,max=500"`
	CategoryID       *string               `json:"category_id"       binding:"omitempty,uuid"`
	LocationID       *string               `json:"location_id"       binding:"omitempty,uuid"`
	Metadata         *model.EventMetadata  `json:"metadata"`
	ResourceRequests []ResourceRequestItem `json:"resource_requests" binding:"omitempty,dive"`
}

// EventChanges 编辑日程时提交的字段变更，nil 表示不修改
type EventChanges struct {
	Title       *string              `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string              `json:"description" binding:"omitempty,max=5000"`
	StartTime   *time.Time           `json:"start_time"`
	EndTime     *time.Time           `json:"end_time"`
	AllDay      *bool                `json:"all_day"`
	Timezone    *string              `json:"timezone"    binding:"omitempty,max=64"`
	RRule       *string              `json:"rrule"       binding:"omitempty,max=500"` // 空字符串表示移除重复规则（仅 all 模式）
	CategoryID  *string              `json:"category_id" binding:"omitempty,uuid"`
	LocationID  *string              `json:"location_id" binding:"omitempty,uuid"`
	Metadata    *model.EventMetadata `json:"metadata"`
}

// UpdateEventRequest 编辑日程请求
type UpdateEventRequest struct {
	Mode            string     `json:"mode"             binding:"required,oneof=this this_and_following all"`
	OccurrenceStart *time.Time `json:"occurrence_start"` // 重复日程的 this / this_and_following 模式必填
	EventChanges
}

// DeleteEventRequest 删除日程查询参数
type DeleteEventRequest struct {
	Mode            string `form:"mode"             binding:"omitempty,oneof=this this_and_following all"`
	OccurrenceStart string `form:"occurrence_start" binding:"omitempty"` // RFC 3339
}

// EventRangeRequest 范围查询参数
type EventRangeRequest struct {
	CalendarIDs        string `form:"calendar_ids"        binding:"required"` // 逗号分隔
	Start              string `form:"start"               binding:"required"` // RFC 3339
	End                string `form:"end"                 binding:"required"` // RFC 3339
	IncludeUnconfirmed bool   `form:"include_unconfirmed"`
}

// ── 响应 ──

// EventResponse 日程记录响应
type EventResponse struct {
	ID            string              `json:"id"`
	CalendarID    string              `json:"calendar_id"`
	Kind          string              `json:"kind"` // standalone | series_root | split_child
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	StartTime     string              `json:"start_time"`
	EndTime       string              `json:"end_time"`
	AllDay        bool                `json:"all_day"`
	Timezone      string              `json:"timezone"`
	RRule         *string             `json:"rrule,omitempty"`
	Status        string              `json:"status"`
	ParentEventID *string             `json:"parent_event_id,omitempty"`
	CategoryID    *string             `json:"category_id,omitempty"`
	LocationID    *string             `json:"location_id,omitempty"`
	Metadata      model.EventMetadata `json:"metadata"`
	CreatorID     string              `json:"creator_id"`
	ApprovedBy    *string             `json:"approved_by,omitempty"`
	ApprovedAt    *string             `json:"approved_at,omitempty"`
	Version       int                 `json:"version"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

// ExceptionResponse 单次实例覆盖响应
type ExceptionResponse struct {
	ID            string `json:"id"`
	ParentEventID string `json:"parent_event_id"`
	OriginalStart string `json:"original_start"`
	Title         string `json:"title"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AllDay        bool   `json:"all_day"`
	Cancelled     bool   `json:"cancelled"`
}

// InstanceResponse 展开后的实例
type InstanceResponse struct {
	ID            string              `json:"id"`
	EventID       string              `json:"event_id"`
	ExceptionID   string              `json:"exception_id,omitempty"`
	CalendarID    string              `json:"calendar_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Start         string              `json:"start"`
	End           string              `json:"end"`
	OriginalStart string              `json:"original_start"`
	AllDay        bool                `json:"all_day"`
	Status        string              `json:"status"`
	CategoryID    *string             `json:"category_id,omitempty"`
	LocationID    *string             `json:"location_id,omitempty"`
	Metadata      model.EventMetadata `json:"metadata"`
	IsRecurring   bool                `json:"is_recurring"`
	IsException   bool                `json:"is_exception"`
}

// EventRangeResponse 范围查询响应
type EventRangeResponse struct {
	Instances       []InstanceResponse `json:"instances"`
	TruncatedSeries []string           `json:"truncated_series,omitempty"` // 触达展开上限的系列
}

// EditEventResponse 编辑结果：按模式返回被修改或新建的记录
type EditEventResponse struct {
	Mode      string             `json:"mode"`
	Event     *EventResponse     `json:"event,omitempty"`      // all 模式的根 / 拆分后被截断的旧根
	NewSeries *EventResponse     `json:"new_series,omitempty"` // this_and_following 新建的系列根
	Exception *ExceptionResponse `json:"exception,omitempty"`  // this 模式写入的覆盖
}
