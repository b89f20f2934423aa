package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/service"
	"campus-calendar/pkg/response"
)

// LocationHandler 场地目录
//
// 读接口对组织内所有成员开放，写接口由路由层限定管理员。
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListLocations GET /api/v1/locations?resource_type=&min_capacity=&keyword=&include_inactive=
func (h *LocationHandler) ListLocations(c *gin.Context) {
	orgID, ok := MustGetOrganizationID(c)
	if !ok {
		return
	}

	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "筛选参数无效")
		return
	}

	locations, err := h.locationSvc.List(c.Request.Context(), orgID, &req)
	if err != nil {
		handleLocationError(c, err)
		return
	}
	response.OK(c, gin.H{"list": locations, "total": len(locations)})
}

// GetLocation GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	orgID, ok := MustGetOrganizationID(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.GetByID(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		handleLocationError(c, err)
		return
	}
	response.OK(c, location)
}

// CreateLocation POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}
	orgID, callerID, ok := adminScope(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), orgID, &req, callerID)
	if err != nil {
		handleLocationError(c, err)
		return
	}
	response.Created(c, location)
}

// UpdateLocation PUT /api/v1/locations/:id
//
// 修改 resource_type 只影响之后提交的日程，已生成的审批记录保持不变。
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}
	orgID, callerID, ok := adminScope(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), orgID, c.Param("id"), &req, callerID)
	if err != nil {
		handleLocationError(c, err)
		return
	}
	response.OK(c, location)
}

// DeleteLocation DELETE /api/v1/locations/:id（软删除，历史日程仍保留引用）
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	orgID, callerID, ok := adminScope(c)
	if !ok {
		return
	}

	if err := h.locationSvc.Delete(c.Request.Context(), orgID, c.Param("id"), callerID); err != nil {
		handleLocationError(c, err)
		return
	}
	response.OK(c, nil)
}

// adminScope 取出写操作需要的组织与操作人
func adminScope(c *gin.Context) (orgID, callerID string, ok bool) {
	if callerID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	if orgID, ok = MustGetOrganizationID(c); !ok {
		return "", "", false
	}
	return orgID, callerID, true
}

// handleLocationError 场地错误码 23xxx，日程引用场地时同样复用
func handleLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, 23001, "场地不存在")
	case errors.Is(err, service.ErrLocationInactive):
		response.UnprocessableEntity(c, 23002, "场地已停用")
	case errors.Is(err, service.ErrInvalidResourceType):
		response.BadRequest(c, 23003, "无效的场地类型")
	default:
		response.InternalError(c)
	}
}
