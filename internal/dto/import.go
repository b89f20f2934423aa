package dto

// ── ICS 导入 ──

// ImportICSRequest ICS 导入请求（用于 URL 方式）
type ImportICSRequest struct {
	URL string `json:"url" binding:"omitempty,url"`
}

// ImportICSResponse ICS 导入响应
type ImportICSResponse struct {
	Total    int              `json:"total"`
	Success  int              `json:"success"`
	Failed   int              `json:"failed"`
	EventIDs []string         `json:"event_ids"`
	Errors   []ImportICSError `json:"errors,omitempty"`
}

// ImportICSError 导入错误详情（以 ICS UID 定位）
type ImportICSError struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}
