package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

// ChannelConfigHandler 审批渠道配置 HTTP 处理器
type ChannelConfigHandler struct {
	configSvc service.ChannelConfigService
}

// NewChannelConfigHandler 创建 ChannelConfigHandler
func NewChannelConfigHandler(configSvc service.ChannelConfigService) *ChannelConfigHandler {
	return &ChannelConfigHandler{configSvc: configSvc}
}

// ListChannelConfigs 获取本组织的审批渠道配置
// GET /api/v1/approval-channels
func (h *ChannelConfigHandler) ListChannelConfigs(c *gin.Context) {
	orgID, ok := MustGetOrganizationID(c)
	if !ok {
		return
	}

	list, err := h.configSvc.List(c.Request.Context(), orgID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// UpdateChannelConfig 更新审批渠道配置
// PUT /api/v1/approval-channels/:channel
func (h *ChannelConfigHandler) UpdateChannelConfig(c *gin.Context) {
	var req dto.UpdateChannelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	orgID, ok := MustGetOrganizationID(c)
	if !ok {
		return
	}

	cfg, err := h.configSvc.Update(c.Request.Context(), orgID, model.ApprovalChannel(c.Param("channel")), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidChannel):
			response.BadRequest(c, 24001, "未知的审批渠道")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, cfg)
}
