package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
)

// finishedBooking 创建一条已确认预约并把时钟拨到课程结束之后
func finishedBooking(t *testing.T, f *fixture) string {
	t.Helper()
	f.addStudent("u1", "2026-01-01", "2026-06-30")
	f.addCourse("c1", courseStart, 120, 10, false)
	b, err := f.svc.Booking.CreateBooking(context.Background(), "u1", "c1", "")
	if err != nil {
		t.Fatalf("预约应成功: %v", err)
	}
	f.clock.Set(courseStart.Add(3 * time.Hour))
	return b.ID
}

func TestAttachFeedback_Success(t *testing.T) {
	f := newFixture(t)
	bookingID := finishedBooking(t, f)

	result, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", &dto.AttachFeedbackRequest{
		Rating:   5,
		Comment:  "  教官讲解清楚  ",
		IsPublic: true,
	})
	if err != nil {
		t.Fatalf("AttachFeedback 应成功: %v", err)
	}
	if result.Rating != 5 || result.Comment != "教官讲解清楚" || result.CourseID != "c1" {
		t.Errorf("评价内容不符: %+v", result)
	}
	if f.pub.count(EventFeedbackCreated) != 1 {
		t.Error("期望发布 feedback.created 事件")
	}

	got, _ := f.svc.Booking.GetBooking(context.Background(), bookingID, student)
	if !got.HasFeedback {
		t.Error("预约详情应标记已评价")
	}
}

func TestAttachFeedback_OnlyOncePerBooking(t *testing.T) {
	f := newFixture(t)
	bookingID := finishedBooking(t, f)
	req := &dto.AttachFeedbackRequest{Rating: 4}

	if _, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", req); err != nil {
		t.Fatalf("首次评价应成功: %v", err)
	}
	_, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", req)
	if !errors.Is(err, ErrFeedbackAlreadyExists) {
		t.Errorf("期望 ErrFeedbackAlreadyExists，实际: %v", err)
	}
}

func TestAttachFeedback_InvalidRating(t *testing.T) {
	f := newFixture(t)
	bookingID := finishedBooking(t, f)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", &dto.AttachFeedbackRequest{Rating: rating})
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating=%d 期望 ErrInvalidRating，实际: %v", rating, err)
		}
	}
}

func TestAttachFeedback_NotEligible(t *testing.T) {
	t.Run("课程未结束", func(t *testing.T) {
		f := newFixture(t)
		bookingID := finishedBooking(t, f)
		f.clock.Set(courseStart.Add(time.Hour))

		_, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", &dto.AttachFeedbackRequest{Rating: 5})
		if !errors.Is(err, ErrBookingNotEligible) {
			t.Errorf("期望 ErrBookingNotEligible，实际: %v", err)
		}
	})

	t.Run("预约已取消", func(t *testing.T) {
		f := newFixture(t)
		bookingID := finishedBooking(t, f)
		_, _ = f.svc.Booking.CancelBooking(context.Background(), bookingID, student, "")

		_, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", &dto.AttachFeedbackRequest{Rating: 5})
		if !errors.Is(err, ErrBookingNotEligible) {
			t.Errorf("期望 ErrBookingNotEligible，实际: %v", err)
		}
	})

	t.Run("待审核", func(t *testing.T) {
		f := newFixture(t)
		f.addStudent("u1", "2026-01-01", "2026-06-30")
		f.addCourse("c1", courseStart, 120, 10, true)
		b, _ := f.svc.Booking.CreateBooking(context.Background(), "u1", "c1", "")
		f.clock.Set(courseStart.Add(3 * time.Hour))

		_, err := f.svc.Feedback.AttachFeedback(context.Background(), b.ID, "u1", &dto.AttachFeedbackRequest{Rating: 5})
		if !errors.Is(err, ErrBookingNotEligible) {
			t.Errorf("期望 ErrBookingNotEligible，实际: %v", err)
		}
	})
}

func TestAttachFeedback_NotOwner(t *testing.T) {
	f := newFixture(t)
	bookingID := finishedBooking(t, f)

	_, err := f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u2", &dto.AttachFeedbackRequest{Rating: 5})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("期望 ErrUnauthorized，实际: %v", err)
	}
}

func TestAttachFeedback_BookingNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Feedback.AttachFeedback(context.Background(), "missing", "u1", &dto.AttachFeedbackRequest{Rating: 5})
	if !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("期望 ErrBookingNotFound，实际: %v", err)
	}
}

func TestListCourseFeedback_PublicOnly(t *testing.T) {
	f := newFixture(t)
	bookingID := finishedBooking(t, f)
	_, _ = f.svc.Feedback.AttachFeedback(context.Background(), bookingID, "u1", &dto.AttachFeedbackRequest{Rating: 3})

	list, total, err := f.svc.Feedback.ListCourseFeedback(context.Background(), "c1", true, &dto.PaginationRequest{})
	if err != nil {
		t.Fatalf("ListCourseFeedback 应成功: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("非公开评价不应出现，实际 total=%d", total)
	}

	list, total, _ = f.svc.Feedback.ListCourseFeedback(context.Background(), "c1", false, &dto.PaginationRequest{})
	if total != 1 || list[0].UserName != "学员u1" {
		t.Errorf("管理员应看到全部评价，实际 total=%d", total)
	}

	if _, _, err := f.svc.Feedback.ListCourseFeedback(context.Background(), "missing", true, &dto.PaginationRequest{}); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}
