package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// ActivityHandler 活动时段预约 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityBookingService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityBookingService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

// CreateActivityBooking 预约活动时段
// POST /api/v1/activity-bookings
func (h *ActivityHandler) CreateActivityBooking(c *gin.Context) {
	var req dto.CreateActivityBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.activitySvc.CreateActivityBooking(c.Request.Context(), userID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.Created(c, booking)
}

// CancelActivityBooking 取消活动预约
// POST /api/v1/activity-bookings/:id/cancel
func (h *ActivityHandler) CancelActivityBooking(c *gin.Context) {
	var req dto.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	requester, ok := MustGetRequester(c)
	if !ok {
		return
	}

	booking, err := h.activitySvc.CancelActivityBooking(c.Request.Context(), c.Param("id"), requester, req.Reason)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// ListMyActivityBookings 我的活动预约
// GET /api/v1/activity-bookings/me
func (h *ActivityHandler) ListMyActivityBookings(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.activitySvc.ListMyActivityBookings(c.Request.Context(), userID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
