package dto

// ExportRequest 导出查询参数
type ExportRequest struct {
	Start string `form:"start" binding:"required"` // RFC 3339
	End   string `form:"end"   binding:"required"` // RFC 3339
}
