package service

import "errors"

// ── 业务错误 ──

var (
	// 资源不存在
	ErrEventNotFound    = errors.New("日程不存在")
	ErrCalendarNotFound = errors.New("日历不存在")
	ErrCategoryNotFound = errors.New("分类不存在")

	// 状态不允许
	ErrEventNotDraft      = errors.New("仅草稿状态的日程可以提交审批")
	ErrEventNotPending    = errors.New("日程不在待审批状态")
	ErrApprovalNotFound   = errors.New("该渠道没有审批记录")
	ErrApprovalNotPending = errors.New("该渠道的审批已处理")
	ErrParentNotRecurring = errors.New("父日程没有重复规则，无法拆分")
	ErrInvalidOccurrence  = errors.New("指定时间不是该系列的发生时间")
	ErrInvalidRecurrence  = errors.New("重复规则无效")
	ErrInvalidTimeRange   = errors.New("结束时间必须晚于开始时间")
	ErrInvalidTimezone    = errors.New("无效的时区")
	ErrInvalidEditMode    = errors.New("无效的编辑模式")
	ErrQueryRangeTooLarge = errors.New("查询时间范围过大")

	ErrLocationNeedsReapproval = errors.New("单次实例不能单独更换场地，请编辑整个系列后重新提交审批")

	// 权限
	ErrNotEventCreator = errors.New("只有日程创建者可以执行此操作")
)
