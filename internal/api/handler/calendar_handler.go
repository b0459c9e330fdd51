package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// CalendarHandler 个人日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// ListEvents 区间内的课程与活动预约
// GET /api/v1/calendar/events?from=2026-03-01&to=2026-03-31
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	events, err := h.calendarSvc.ListEvents(c.Request.Context(), userID, &req)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"list": events})
}

// ExportICS 导出 iCalendar 订阅文件
// GET /api/v1/calendar/me.ics
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.calendarSvc.ExportICS(c.Request.Context(), userID)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	c.Header("Content-Disposition", `attachment; filename="bookings.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}
