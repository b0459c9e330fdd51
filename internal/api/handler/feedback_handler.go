package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// FeedbackHandler 课程评价 HTTP 处理器
type FeedbackHandler struct {
	feedbackSvc service.FeedbackService
}

// NewFeedbackHandler 创建 FeedbackHandler
func NewFeedbackHandler(feedbackSvc service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackSvc: feedbackSvc}
}

// AttachFeedback 为已结束的预约提交评价
// POST /api/v1/bookings/:id/feedback
func (h *FeedbackHandler) AttachFeedback(c *gin.Context) {
	var req dto.AttachFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fb, err := h.feedbackSvc.AttachFeedback(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.Created(c, fb)
}

// ListCourseFeedback 课程评价列表，非管理员只能看到公开评价
// GET /api/v1/courses/:id/feedback
func (h *FeedbackHandler) ListCourseFeedback(c *gin.Context) {
	var req dto.FeedbackListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	publicOnly := c.GetString("role") != model.RoleAdmin
	list, total, err := h.feedbackSvc.ListCourseFeedback(c.Request.Context(), c.Param("id"), publicOnly, &req.PaginationRequest)
	if err != nil {
		handleBookingError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
