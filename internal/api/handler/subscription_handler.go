package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

// SubscriptionHandler 日历订阅模块 HTTP 处理器
type SubscriptionHandler struct {
	subscriptionSvc service.SubscriptionService
}

// NewSubscriptionHandler 创建 SubscriptionHandler
func NewSubscriptionHandler(subscriptionSvc service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionSvc: subscriptionSvc}
}

// UpdateSubscription 订阅或取消订阅日历
// PUT /api/v1/calendars/:id/subscription
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.subscriptionSvc.Toggle(c.Request.Context(), userID, c.Param("id"), *req.Subscribed)
	if err != nil {
		if errors.Is(err, service.ErrCalendarNotFound) {
			response.NotFound(c, 20002, "日历不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ListSubscriptions 当前用户的订阅列表
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.subscriptionSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}
