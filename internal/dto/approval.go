package dto

// ── 审批模块 DTO ──

// RejectApprovalRequest 驳回请求
type RejectApprovalRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// ApprovalResponse 单个渠道审批记录
type ApprovalResponse struct {
	ID           string  `json:"id"`
	Channel      string  `json:"channel"`
	Status       string  `json:"status"`
	ResponderID  *string `json:"responder_id,omitempty"`
	RespondedAt  *string `json:"responded_at,omitempty"`
	RejectReason string  `json:"reject_reason,omitempty"`
}

// ApprovalSummaryResponse 日程审批汇总
type ApprovalSummaryResponse struct {
	EventID     string             `json:"event_id"`
	EventStatus string             `json:"event_status"`
	Approvals   []ApprovalResponse `json:"approvals"`
}
