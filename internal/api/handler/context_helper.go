package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/model"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/jwt"
	"campus-calendar/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetOrganizationID 提取调用方所属组织
func MustGetOrganizationID(c *gin.Context) (string, bool) {
	orgID := c.GetString("organization_id")
	if orgID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return orgID, true
}

// MustGetActor 提取调用方身份，发布权限由 JWT 中的角色推导
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role := c.GetString("role")
	return service.Actor{
		UserID:     userID,
		CanPublish: role == model.RoleAdmin || role == model.RolePublisher,
	}, true
}

// MustGetClaims 提取当前 Access Token 的声明（登出时作废用）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// parseTimeParam 解析 RFC 3339 时间参数，失败时写入 400 响应
func parseTimeParam(c *gin.Context, name, value string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		response.BadRequest(c, 10001, name+" 必须为 RFC 3339 时间")
		return time.Time{}, false
	}
	return t, true
}

// splitIDs 解析逗号分隔的 ID 列表
func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
