package dto

// ── 审批渠道配置 DTO ──

// UpdateChannelConfigRequest 更新审批渠道配置请求，nil 表示不修改
type UpdateChannelConfigRequest struct {
	Mode                    *string `json:"mode"                        binding:"omitempty,oneof=required optional"`
	AutoApproveIfNoResource *bool   `json:"auto_approve_if_no_resource"`
	IsActive                *bool   `json:"is_active"`
	SortOrder               *int    `json:"sort_order"                  binding:"omitempty,min=0"`
}

// ChannelConfigResponse 审批渠道配置响应
type ChannelConfigResponse struct {
	Channel                 string `json:"channel"`
	Mode                    string `json:"mode"`
	AutoApproveIfNoResource bool   `json:"auto_approve_if_no_resource"`
	IsActive                bool   `json:"is_active"`
	SortOrder               int    `json:"sort_order"`
	UpdatedAt               string `json:"updated_at"`
}
