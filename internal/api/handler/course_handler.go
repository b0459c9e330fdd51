package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// CourseHandler 课程与名额 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.courseSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetCourse 课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

// GetOccupancy 课程当前名额
// GET /api/v1/courses/:id/occupancy
func (h *CourseHandler) GetOccupancy(c *gin.Context) {
	occ, err := h.courseSvc.GetOccupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, occ)
}

// AdjustCapacity 管理员人工调整名额
// POST /api/v1/admin/courses/:id/ledger/adjust
func (h *CourseHandler) AdjustCapacity(c *gin.Context) {
	var req dto.AdjustCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	adj, err := h.courseSvc.AdjustCapacity(c.Request.Context(), c.Param("id"), operatorID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, adj)
}

// ListAdjustments 名额调整审计记录
// GET /api/v1/admin/courses/:id/ledger/adjustments
func (h *CourseHandler) ListAdjustments(c *gin.Context) {
	list, err := h.courseSvc.ListAdjustments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// AuditOccupancy 名额一致性巡检
// GET /api/v1/admin/occupancy-audit
func (h *CourseHandler) AuditOccupancy(c *gin.Context) {
	drifts, err := h.courseSvc.AuditOccupancy(c.Request.Context(), time.Now())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"list": drifts})
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCategory):
		response.BadRequest(c, 21004, "课程类别无效")
	case errors.Is(err, service.ErrOverrideReasonRequired):
		response.BadRequest(c, 21002, "人工调整名额必须填写原因")
	case errors.Is(err, service.ErrAdjustmentRejected):
		response.Conflict(c, 21003, "调整后名额越界")
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}
