package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// 单次定时任务最多处理的过期待审核预约数
const expireBatchSize = 200

// BookingService 课程预约生命周期
//
// requested → pending | confirmed；pending → confirmed；pending | confirmed → cancelled；cancelled 为终态
type BookingService interface {
	CreateBooking(ctx context.Context, userID, courseID, idempotencyKey string) (*dto.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID string, requester Requester, reason string) (*dto.BookingResponse, error)
	ConfirmBooking(ctx context.Context, bookingID, approverID string) (*dto.BookingResponse, error)
	// ExpireStalePending 取消课程已开始仍未审核的预约，返回处理条数
	ExpireStalePending(ctx context.Context, now time.Time) (int, error)
	GetBooking(ctx context.Context, bookingID string, requester Requester) (*dto.BookingResponse, error)
	ListMyBookings(ctx context.Context, userID string, req *dto.BookingListRequest) ([]dto.BookingResponse, int64, error)
	ListPendingBookings(ctx context.Context, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error)
}

type bookingService struct {
	repo      *repository.Repository
	opts      Options
	members   MembershipValidator
	cache     OccupancyCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(
	repo *repository.Repository,
	opts Options,
	members MembershipValidator,
	cache OccupancyCache,
	publisher EventPublisher,
	logger *zap.Logger,
) BookingService {
	if cache == nil {
		cache = nopOccupancyCache{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		opts:      opts.withDefaults(),
		members:   members,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// ────────────────────── CreateBooking ──────────────────────

func (s *bookingService) CreateBooking(ctx context.Context, userID, courseID, idempotencyKey string) (resp *dto.BookingResponse, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.CreateBooking", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("course_id", courseID),
	))
	defer func() { recordSpan(span, err); span.End() }()

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	requestedAt := s.opts.Clock.Now()

	// 1. 幂等键重放
	if idempotencyKey != "" {
		existing, err := s.repo.Booking.GetByIdempotencyKey(ctx, userID, idempotencyKey)
		if err == nil {
			return s.replay(existing, courseID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询幂等键失败", zap.String("user_id", userID), zap.Error(err))
			return nil, storageError(err)
		}
	}

	// 2. 课程、会员资格
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, storageError(err)
	}

	decision, err := s.members.Validate(ctx, userID, requestedAt)
	if err != nil {
		return nil, err
	}
	if !decision.Authorized {
		return nil, fmt.Errorf("%w: %s", ErrMembershipInvalid, decision.Reason)
	}

	// 3. 占用名额并落库：同一事务内完成，失败整体回滚
	// 锁定用户行串行化同一用户的并发请求；锁内复查幂等键，再查冲突
	booking := &model.Booking{
		BookingID:   uuid.NewString(),
		UserID:      userID,
		CourseID:    courseID,
		BookingDate: requestedAt,
		Status:      model.BookingConfirmed,
		QRCode:      uuid.NewString(),
	}
	if course.RequiresApproval {
		booking.Status = model.BookingPending
	}
	if idempotencyKey != "" {
		booking.IdempotencyKey = &idempotencyKey
	}
	booking.CreatedBy = &userID
	booking.UpdatedBy = &userID

	var replayed *model.Booking
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.LockByID(ctx, userID); err != nil {
			return err
		}
		if idempotencyKey != "" {
			existing, err := tx.Booking.GetByIdempotencyKey(ctx, userID, idempotencyKey)
			if err == nil {
				replayed = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		conflict, err := NewConflictDetector(tx, s.opts.Location, s.logger).
			HasConflict(ctx, userID, course.StartTime, course.EndTime, "")
		if err != nil {
			return err
		}
		if conflict {
			return ErrTimeConflict
		}

		ok, err := NewCapacityLedger(tx, nil, s.logger).Reserve(ctx, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCourseFull
		}
		return tx.Booking.Create(ctx, booking)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTimeConflict), errors.Is(err, ErrCourseFull),
			errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrStorageUnavailable):
			return nil, err
		case errors.Is(err, pkgerrors.ErrDuplicateKey) && idempotencyKey != "":
			winner, gerr := s.repo.Booking.GetByIdempotencyKey(ctx, userID, idempotencyKey)
			if gerr != nil {
				return nil, storageError(gerr)
			}
			return s.replay(winner, courseID)
		}
		s.logger.Error("创建预约失败", zap.String("user_id", userID), zap.String("course_id", courseID), zap.Error(err))
		return nil, storageError(err)
	}
	if replayed != nil {
		return s.replay(replayed, courseID)
	}

	if err := s.cache.InvalidateOccupancy(ctx, courseID); err != nil {
		s.logger.Warn("失效名额缓存失败", zap.String("course_id", courseID), zap.Error(err))
	}
	booking.Course = course
	s.logger.Info("课程预约已创建",
		zap.String("booking_id", booking.BookingID),
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("status", string(booking.Status)),
	)
	publish(ctx, s.publisher, s.logger, EventBookingCreated, s.event(EventBookingCreated, booking))

	return toBookingResponse(booking), nil
}

// replay 幂等重放：同一幂等键只能对应同一门课程
func (s *bookingService) replay(existing *model.Booking, courseID string) (*dto.BookingResponse, error) {
	if existing.CourseID != courseID {
		return nil, ErrIdempotencyKeyReused
	}
	return toBookingResponse(existing), nil
}

// ────────────────────── CancelBooking ──────────────────────

func (s *bookingService) CancelBooking(ctx context.Context, bookingID string, requester Requester, reason string) (resp *dto.BookingResponse, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.CancelBooking", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
	))
	defer func() { recordSpan(span, err); span.End() }()

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	var (
		booking *model.Booking
		changed bool
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		b, err := tx.Booking.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.UserID != requester.UserID && !requester.IsAdmin {
			return ErrUnauthorized
		}
		booking = b

		// 重复取消视为成功，不再释放名额
		if b.Status == model.BookingCancelled {
			return nil
		}
		changed = true
		return s.cancelLocked(ctx, tx, b, &requester.UserID, reason)
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		s.logger.Error("取消预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, storageError(err)
	}

	if changed {
		s.afterCancel(ctx, booking)
	}
	return toBookingResponse(booking), nil
}

// cancelLocked 在已锁定预约行的事务内取消并释放名额
func (s *bookingService) cancelLocked(ctx context.Context, tx *repository.Repository, b *model.Booking, actorID *string, reason string) error {
	if !b.Status.CanTransitionTo(model.BookingCancelled) {
		return ErrBookingNotEligible
	}
	now := s.opts.Clock.Now()
	b.Status = model.BookingCancelled
	b.CancelledBy = actorID
	b.CancelledAt = &now
	b.CancelReason = reason
	b.UpdatedBy = actorID
	if err := tx.Booking.UpdateStatus(ctx, b); err != nil {
		return err
	}
	return NewCapacityLedger(tx, nil, s.logger).Release(ctx, b.CourseID)
}

// afterCancel 提交后失效缓存并发布事件
func (s *bookingService) afterCancel(ctx context.Context, b *model.Booking) {
	if err := s.cache.InvalidateOccupancy(ctx, b.CourseID); err != nil {
		s.logger.Warn("失效名额缓存失败", zap.String("course_id", b.CourseID), zap.Error(err))
	}
	s.logger.Info("课程预约已取消",
		zap.String("booking_id", b.BookingID),
		zap.String("course_id", b.CourseID),
		zap.String("reason", b.CancelReason),
	)
	publish(ctx, s.publisher, s.logger, EventBookingCancelled, s.event(EventBookingCancelled, b))
}

// ────────────────────── ConfirmBooking ──────────────────────

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID, approverID string) (resp *dto.BookingResponse, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.ConfirmBooking", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
	))
	defer func() { recordSpan(span, err); span.End() }()

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	var (
		booking *model.Booking
		changed bool
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		b, err := tx.Booking.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		booking = b

		if b.Status == model.BookingConfirmed {
			return nil
		}
		if b.Course == nil || !b.Course.RequiresApproval || !b.Status.CanTransitionTo(model.BookingConfirmed) {
			return ErrBookingNotEligible
		}

		now := s.opts.Clock.Now()
		b.Status = model.BookingConfirmed
		b.ConfirmedBy = &approverID
		b.ConfirmedAt = &now
		b.UpdatedBy = &approverID
		changed = true
		return tx.Booking.UpdateStatus(ctx, b)
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrBookingNotEligible) {
			return nil, err
		}
		s.logger.Error("确认预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, storageError(err)
	}

	if changed {
		s.logger.Info("课程预约已确认",
			zap.String("booking_id", booking.BookingID),
			zap.String("approver_id", approverID),
		)
		publish(ctx, s.publisher, s.logger, EventBookingConfirmed, s.event(EventBookingConfirmed, booking))
	}
	return toBookingResponse(booking), nil
}

// ────────────────────── ExpireStalePending ──────────────────────

func (s *bookingService) ExpireStalePending(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "BookingService.ExpireStalePending")
	defer span.End()

	ids, err := s.repo.Booking.ListStalePending(ctx, now, expireBatchSize)
	if err != nil {
		s.logger.Error("查询过期待审核预约失败", zap.Error(err))
		recordSpan(span, err)
		return 0, storageError(err)
	}

	expired := 0
	for _, id := range ids {
		var booking *model.Booking
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			b, err := tx.Booking.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// 锁内复查：可能已被确认或取消
			if b.Status != model.BookingPending || b.Course == nil || !b.Course.HasStarted(now) {
				return nil
			}
			booking = b
			return s.cancelLocked(ctx, tx, b, nil, model.CancelReasonExpired)
		})
		if err != nil {
			s.logger.Warn("取消过期待审核预约失败", zap.String("booking_id", id), zap.Error(err))
			continue
		}
		if booking != nil {
			expired++
			s.afterCancel(ctx, booking)
		}
	}

	span.SetAttributes(attribute.Int("expired", expired))
	return expired, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *bookingService) GetBooking(ctx context.Context, bookingID string, requester Requester) (*dto.BookingResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	booking, err := s.repo.Booking.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, storageError(err)
	}
	if booking.UserID != requester.UserID && !requester.IsAdmin {
		return nil, ErrUnauthorized
	}

	resp := toBookingResponse(booking)
	if _, err := s.repo.Feedback.GetByBooking(ctx, bookingID); err == nil {
		resp.HasFeedback = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError(err)
	}
	return resp, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, userID string, req *dto.BookingListRequest) ([]dto.BookingResponse, int64, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	filters := &repository.BookingListFilters{
		UserID: userID,
		Status: model.BookingStatus(req.Status),
	}
	return s.list(ctx, filters, &req.PaginationRequest)
}

func (s *bookingService) ListPendingBookings(ctx context.Context, req *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	filters := &repository.BookingListFilters{Status: model.BookingPending}
	return s.list(ctx, filters, req)
}

func (s *bookingService) list(ctx context.Context, filters *repository.BookingListFilters, page *dto.PaginationRequest) ([]dto.BookingResponse, int64, error) {
	bookings, total, err := s.repo.Booking.List(ctx, filters, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出预约失败", zap.Error(err))
		return nil, 0, storageError(err)
	}

	result := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		result = append(result, *toBookingResponse(&bookings[i]))
	}
	return result, total, nil
}

func (s *bookingService) event(name string, b *model.Booking) BookingEvent {
	return BookingEvent{
		Event:      name,
		Kind:       KindCourse,
		BookingID:  b.BookingID,
		UserID:     b.UserID,
		CourseID:   b.CourseID,
		Status:     string(b.Status),
		QRCode:     b.QRCode,
		Reason:     b.CancelReason,
		OccurredAt: s.opts.Clock.Now(),
	}
}
