package dto

// ── 订阅模块 DTO ──

// UpdateSubscriptionRequest 切换订阅请求
type UpdateSubscriptionRequest struct {
	Subscribed *bool `json:"subscribed" binding:"required"`
}

// SubscriptionResponse 订阅状态响应
type SubscriptionResponse struct {
	CalendarID   string `json:"calendar_id"`
	CalendarName string `json:"calendar_name,omitempty"`
	Subscribed   bool   `json:"subscribed"`
}
