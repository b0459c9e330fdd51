package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// IdempotencyKeyHeader 客户端重试创建预约时携带的请求头
const IdempotencyKeyHeader = "Idempotency-Key"

// BookingHandler 课程预约 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// CreateBooking 预约课程
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.CreateBooking(c.Request.Context(), userID, req.CourseID, req.IdempotencyKey)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.Created(c, booking)
}

// CancelBooking 取消课程预约（本人或管理员）
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req dto.CancelBookingRequest
	// 允许空 body
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

	booking, err := h.bookingSvc.CancelBooking(c.Request.Context(), c.Param("id"), requester, req.Reason)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// ConfirmBooking 管理员审核通过待审核预约
// POST /api/v1/admin/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	approverID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.ConfirmBooking(c.Request.Context(), c.Param("id"), approverID)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// GetBooking 预约详情
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	requester, ok := MustGetRequester(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.GetBooking(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// ListMyBookings 我的课程预约
// GET /api/v1/bookings/me
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	var req dto.BookingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.bookingSvc.ListMyBookings(c.Request.Context(), userID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListPendingBookings 待审核预约
// GET /api/v1/admin/bookings/pending
func (h *BookingHandler) ListPendingBookings(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.bookingSvc.ListPendingBookings(c.Request.Context(), &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// handleBookingError 课程预约、活动预约、评价共用的错误映射
func handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMembershipInvalid):
		response.Forbidden(c, 20001, "会员资格无效或已过期")
	case errors.Is(err, service.ErrTimeConflict):
		response.Conflict(c, 20002, "与已有预约时间冲突")
	case errors.Is(err, service.ErrCourseFull):
		response.Conflict(c, 20003, "课程名额已满")
	case errors.Is(err, service.ErrSlotTaken):
		response.Conflict(c, 20004, "该活动时段已被预约")
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 20005, "预约不存在")
	case errors.Is(err, service.ErrBookingNotEligible), errors.Is(err, service.ErrAlreadyCancelled):
		response.Conflict(c, 20006, "预约当前状态不允许该操作")
	case errors.Is(err, service.ErrIdempotencyKeyReused):
		response.Conflict(c, 20007, "幂等键已用于其他预约请求")
	case errors.Is(err, service.ErrInvalidTimeSlot):
		response.BadRequest(c, 20008, "活动时段格式无效，应为 HH:MM-HH:MM")
	case errors.Is(err, service.ErrInvalidActivityType):
		response.BadRequest(c, 20009, "活动类型无效")
	case errors.Is(err, service.ErrUnauthorized):
		response.Forbidden(c, 20010, "无权操作该预约")
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, 16001, "场地不存在或已停用")
	case errors.Is(err, service.ErrVenueNotHostingType):
		response.BadRequest(c, 20011, "该场地不承接此活动类型")
	case errors.Is(err, service.ErrInvalidRating):
		response.BadRequest(c, 22001, "评分必须在 1-5 之间")
	case errors.Is(err, service.ErrFeedbackAlreadyExists):
		response.Conflict(c, 22002, "该预约已有评价")
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}
