package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// LocationHandler 活动场地 HTTP 处理器
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListLocations 场地列表，可按活动类型筛选
// GET /api/v1/locations?activity_type=&include_inactive=
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if c.GetString("role") != model.RoleAdmin {
		req.IncludeInactive = false
	}

	locations, err := h.locationSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleLocationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": locations})
}

// GetLocation 场地详情
// GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := bindLocationID(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// CreateLocation 新增场地（管理员）
// POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleLocationError(c, err)
		return
	}

	response.Created(c, location)
}

// UpdateLocation 更新场地，停用后不能再被预约（管理员）
// PUT /api/v1/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := bindLocationID(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// DeleteLocation 删除场地（管理员）
// DELETE /api/v1/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := bindLocationID(c)
	if !ok {
		return
	}

	if err := h.locationSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleLocationError(c, err)
		return
	}

	response.OK(c, nil)
}

func bindLocationID(c *gin.Context) (string, bool) {
	var uri dto.LocationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, 10001, "场地 ID 格式无效")
		return "", false
	}
	return uri.ID, true
}

func handleLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, 16001, "场地不存在")
	case errors.Is(err, service.ErrLocationNameTaken):
		response.Conflict(c, 16002, "已存在同名的启用场地")
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}
