package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// FeedbackService 课程评价
// 每个预约至多一条评价，在预约行锁内检查，不依赖唯一索引
type FeedbackService interface {
	AttachFeedback(ctx context.Context, bookingID, requesterID string, req *dto.AttachFeedbackRequest) (*dto.FeedbackResponse, error)
	ListCourseFeedback(ctx context.Context, courseID string, publicOnly bool, req *dto.PaginationRequest) ([]dto.FeedbackResponse, int64, error)
}

type feedbackService struct {
	repo      *repository.Repository
	opts      Options
	publisher EventPublisher
	logger    *zap.Logger
}

// NewFeedbackService 创建 FeedbackService 实例
func NewFeedbackService(repo *repository.Repository, opts Options, publisher EventPublisher, logger *zap.Logger) FeedbackService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &feedbackService{repo: repo, opts: opts.withDefaults(), publisher: publisher, logger: logger}
}

// ────────────────────── AttachFeedback ──────────────────────

func (s *feedbackService) AttachFeedback(ctx context.Context, bookingID, requesterID string, req *dto.AttachFeedbackRequest) (resp *dto.FeedbackResponse, err error) {
	ctx, span := tracer.Start(ctx, "FeedbackService.AttachFeedback", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.Int("rating", req.Rating),
	))
	defer func() { recordSpan(span, err); span.End() }()

	if !model.ValidRating(req.Rating) {
		return nil, ErrInvalidRating
	}

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	var feedback *model.CourseFeedback
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		b, err := tx.Booking.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.UserID != requesterID {
			return ErrUnauthorized
		}
		if b.Status != model.BookingConfirmed || b.Course == nil || !b.Course.HasEnded(s.opts.Clock.Now()) {
			return ErrBookingNotEligible
		}

		if _, err := tx.Feedback.GetByBooking(ctx, bookingID); err == nil {
			return ErrFeedbackAlreadyExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		feedback = &model.CourseFeedback{
			BookingID: b.BookingID,
			UserID:    b.UserID,
			CourseID:  b.CourseID,
			Rating:    req.Rating,
			Comment:   strings.TrimSpace(req.Comment),
			IsPublic:  req.IsPublic,
			CreatedAt: s.opts.Clock.Now(),
		}
		return tx.Feedback.Create(ctx, feedback)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound),
			errors.Is(err, ErrUnauthorized),
			errors.Is(err, ErrBookingNotEligible),
			errors.Is(err, ErrFeedbackAlreadyExists):
			return nil, err
		}
		s.logger.Error("提交课程评价失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, storageError(err)
	}

	s.logger.Info("课程评价已提交",
		zap.String("feedback_id", feedback.FeedbackID),
		zap.String("booking_id", bookingID),
		zap.Int("rating", feedback.Rating),
	)
	publish(ctx, s.publisher, s.logger, EventFeedbackCreated, FeedbackEvent{
		Event:      EventFeedbackCreated,
		FeedbackID: feedback.FeedbackID,
		BookingID:  feedback.BookingID,
		CourseID:   feedback.CourseID,
		Rating:     feedback.Rating,
		OccurredAt: feedback.CreatedAt,
	})

	return toFeedbackResponse(feedback), nil
}

// ────────────────────── ListCourseFeedback ──────────────────────

func (s *feedbackService) ListCourseFeedback(ctx context.Context, courseID string, publicOnly bool, req *dto.PaginationRequest) ([]dto.FeedbackResponse, int64, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrCourseNotFound
		}
		return nil, 0, storageError(err)
	}

	feedbacks, total, err := s.repo.Feedback.ListByCourse(ctx, courseID, publicOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程评价失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, 0, storageError(err)
	}

	result := make([]dto.FeedbackResponse, 0, len(feedbacks))
	for i := range feedbacks {
		result = append(result, *toFeedbackResponse(&feedbacks[i]))
	}
	return result, total, nil
}
