package dto

// ── 场地 ──

// CreateLocationRequest 创建场地；resource_type 缺省为 room
type CreateLocationRequest struct {
	Name         string `json:"name"          binding:"required,min=2,max=100"`
	Building     string `json:"building"      binding:"omitempty,max=100"`
	ResourceType string `json:"resource_type" binding:"omitempty,oneof=room facility athletics_venue"`
	Capacity     int    `json:"capacity"      binding:"omitempty,min=0"`
}

// UpdateLocationRequest 部分更新，nil 字段保持不变
type UpdateLocationRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=100"`
	Building     *string `json:"building"      binding:"omitempty,max=100"`
	ResourceType *string `json:"resource_type" binding:"omitempty,oneof=room facility athletics_venue"`
	Capacity     *int    `json:"capacity"      binding:"omitempty,min=0"`
	IsActive     *bool   `json:"is_active"`
}

// LocationListRequest 场地列表筛选；min_capacity 用于按活动人数挑选场地
type LocationListRequest struct {
	IncludeInactive bool   `form:"include_inactive"`
	ResourceType    string `form:"resource_type" binding:"omitempty,oneof=room facility athletics_venue"`
	MinCapacity     int    `form:"min_capacity"  binding:"omitempty,min=0"`
	Keyword         string `form:"keyword"       binding:"omitempty,max=50"`
}

// LocationResponse 场地信息；approval_channel 为引用该场地时参与审批的渠道
type LocationResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Building        string `json:"building,omitempty"`
	ResourceType    string `json:"resource_type"`
	ApprovalChannel string `json:"approval_channel,omitempty"`
	Capacity        int    `json:"capacity"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
