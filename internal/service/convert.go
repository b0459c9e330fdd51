package service

import (
	"time"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

// ── model → dto 转换 ──

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		StudentID: u.StudentID,
		Phone:     u.Phone,
		Address:   u.Address,
		Avatar:    u.Avatar,
		Role:      u.Role,
	}
}

func toCourseResponse(c *model.Course) *dto.CourseResponse {
	materials := []string(c.Materials)
	return &dto.CourseResponse{
		ID:               c.CourseID,
		Code:             c.Code,
		Name:             c.Name,
		Category:         string(c.Category),
		Teacher:          c.Teacher,
		StartTime:        formatTime(c.StartTime),
		EndTime:          formatTime(c.EndTime),
		Duration:         c.Duration,
		Location:         c.Location,
		MaxStudents:      c.MaxStudents,
		CurrentStudents:  c.CurrentStudents,
		RequiresApproval: c.RequiresApproval,
		Description:      c.Description,
		Image:            c.Image,
		Materials:        materials,
	}
}

func toBookingResponse(b *model.Booking) *dto.BookingResponse {
	resp := &dto.BookingResponse{
		ID:           b.BookingID,
		UserID:       b.UserID,
		CourseID:     b.CourseID,
		BookingDate:  formatTime(b.BookingDate),
		Status:       string(b.Status),
		QRCode:       b.QRCode,
		ConfirmedBy:  derefString(b.ConfirmedBy),
		CancelReason: b.CancelReason,
		CancelledAt:  formatTimePtr(b.CancelledAt),
	}
	if b.Course != nil {
		resp.Course = toCourseResponse(b.Course)
	}
	return resp
}

func toActivityBookingResponse(a *model.ActivityBooking) *dto.ActivityBookingResponse {
	return &dto.ActivityBookingResponse{
		ID:           a.ActivityBookingID,
		UserID:       a.UserID,
		ActivityType: string(a.ActivityType),
		Title:        a.Title,
		Date:         a.Date.Format(model.DateLayout),
		TimeSlot:     a.TimeSlot,
		Location:     a.Location,
		Content:      a.Content,
		Status:       string(a.Status),
		QRCode:       a.QRCode,
		CancelReason: a.CancelReason,
	}
}

func toFeedbackResponse(f *model.CourseFeedback) *dto.FeedbackResponse {
	resp := &dto.FeedbackResponse{
		ID:        f.FeedbackID,
		BookingID: f.BookingID,
		CourseID:  f.CourseID,
		UserID:    f.UserID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		IsPublic:  f.IsPublic,
		CreatedAt: formatTime(f.CreatedAt),
	}
	if f.User != nil {
		resp.UserName = f.User.Name
	}
	return resp
}
