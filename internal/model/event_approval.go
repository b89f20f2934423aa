package model

import "time"

// ApprovalChannel 审批渠道（相互独立的审批域）
type ApprovalChannel string

const (
	ChannelAdmin      ApprovalChannel = "admin"
	ChannelFacilities ApprovalChannel = "facilities"
	ChannelAV         ApprovalChannel = "av"
	ChannelCustodial  ApprovalChannel = "custodial"
	ChannelSecurity   ApprovalChannel = "security"
	ChannelAthletics  ApprovalChannel = "athletics"
)

// IsValid 是否为已知渠道
func (c ApprovalChannel) IsValid() bool {
	switch c {
	case ChannelAdmin, ChannelFacilities, ChannelAV, ChannelCustodial, ChannelSecurity, ChannelAthletics:
		return true
	}
	return false
}

// 审批记录状态
const (
	ApprovalStatusPending      = "pending"
	ApprovalStatusApproved     = "approved"
	ApprovalStatusRejected     = "rejected"
	ApprovalStatusAutoApproved = "auto_approved"
	ApprovalStatusSkipped      = "skipped"
)

// 审批渠道模式
const (
	ChannelModeRequired = "required"
	ChannelModeOptional = "optional"
)

// EventApproval 日程审批记录表，对应 event_approvals，(event_id, channel) 唯一
type EventApproval struct {
	ApprovalID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"approval_id"`
	EventID      string          `gorm:"type:uuid;not null;uniqueIndex:uk_event_channel" json:"event_id"`
	Channel      ApprovalChannel `gorm:"type:varchar(20);not null;uniqueIndex:uk_event_channel" json:"channel"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending'"     json:"status"` // pending | approved | rejected | auto_approved | skipped
	ResponderID  *string         `gorm:"type:uuid"                                       json:"responder_id,omitempty"`
	RespondedAt  *time.Time      `json:"responded_at,omitempty"`
	RejectReason string          `gorm:"type:varchar(500)"                               json:"reject_reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (EventApproval) TableName() string { return "event_approvals" }

// IsCleared 该渠道是否已放行
func (a *EventApproval) IsCleared() bool {
	switch a.Status {
	case ApprovalStatusApproved, ApprovalStatusAutoApproved, ApprovalStatusSkipped:
		return true
	}
	return false
}

// ApprovalChannelConfig 组织级审批渠道配置表，对应 approval_channel_configs
type ApprovalChannelConfig struct {
	ConfigID                string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"config_id"`
	OrganizationID          string          `gorm:"type:uuid;not null;index"                       json:"organization_id"`
	Channel                 ApprovalChannel `gorm:"type:varchar(20);not null"                      json:"channel"`
	Mode                    string          `gorm:"type:varchar(20);not null;default:'required'"   json:"mode"` // required | optional
	AutoApproveIfNoResource bool            `gorm:"not null;default:false"                         json:"auto_approve_if_no_resource"`
	IsActive                bool            `gorm:"not null"                                       json:"is_active"`
	SortOrder               int             `gorm:"not null;default:0"                             json:"sort_order"`
	BaseModel
}

// TableName 指定表名
func (ApprovalChannelConfig) TableName() string { return "approval_channel_configs" }

// IsRequired 是否为必选渠道
func (c *ApprovalChannelConfig) IsRequired() bool {
	return c.Mode == ChannelModeRequired
}
