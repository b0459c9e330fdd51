package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// ActivityBookingService 活动预约（二元时段，一个时段只容纳一个预约，创建即确认）
type ActivityBookingService interface {
	CreateActivityBooking(ctx context.Context, userID string, req *dto.CreateActivityBookingRequest) (*dto.ActivityBookingResponse, error)
	CancelActivityBooking(ctx context.Context, bookingID string, requester Requester, reason string) (*dto.ActivityBookingResponse, error)
	ListMyActivityBookings(ctx context.Context, userID string, req *dto.PaginationRequest) ([]dto.ActivityBookingResponse, int64, error)
}

type activityBookingService struct {
	repo      *repository.Repository
	opts      Options
	members   MembershipValidator
	publisher EventPublisher
	logger    *zap.Logger
}

// NewActivityBookingService 创建 ActivityBookingService 实例
func NewActivityBookingService(
	repo *repository.Repository,
	opts Options,
	members MembershipValidator,
	publisher EventPublisher,
	logger *zap.Logger,
) ActivityBookingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &activityBookingService{
		repo:      repo,
		opts:      opts.withDefaults(),
		members:   members,
		publisher: publisher,
		logger:    logger,
	}
}

// ────────────────────── CreateActivityBooking ──────────────────────

func (s *activityBookingService) CreateActivityBooking(ctx context.Context, userID string, req *dto.CreateActivityBookingRequest) (resp *dto.ActivityBookingResponse, err error) {
	ctx, span := tracer.Start(ctx, "ActivityBookingService.CreateActivityBooking", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("activity_type", req.ActivityType),
		attribute.String("time_slot", req.TimeSlot),
	))
	defer func() { recordSpan(span, err); span.End() }()

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	// 1. 入参校验
	activityType := model.ActivityType(req.ActivityType)
	if !activityType.Valid() {
		return nil, ErrInvalidActivityType
	}
	date, err := time.ParseInLocation(model.DateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}
	start, end, err := model.SlotInterval(date, req.TimeSlot, s.opts.Location)
	if err != nil {
		return nil, ErrInvalidTimeSlot
	}
	key := model.SlotKey{
		ActivityType: activityType,
		Date:         date,
		TimeSlot:     req.TimeSlot,
		Location:     strings.TrimSpace(req.Location),
	}

	// 2. 幂等键重放
	if req.IdempotencyKey != "" {
		existing, err := s.repo.ActivityBooking.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err == nil {
			return s.replay(existing, key)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询幂等键失败", zap.String("user_id", userID), zap.Error(err))
			return nil, storageError(err)
		}
	}

	// 3. 场地、会员资格
	venue, err := s.repo.Location.GetActiveByName(ctx, key.Location)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, storageError(err)
	}
	if !venue.Hosts(activityType) {
		return nil, ErrVenueNotHostingType
	}

	requestedAt := s.opts.Clock.Now()
	decision, err := s.members.Validate(ctx, userID, requestedAt)
	if err != nil {
		return nil, err
	}
	if !decision.Authorized {
		return nil, fmt.Errorf("%w: %s", ErrMembershipInvalid, decision.Reason)
	}

	// 4. 占用时段并落库：同一事务内完成，失败整体回滚
	// 锁定用户行串行化同一用户的并发请求；锁内复查幂等键，再查冲突
	booking := &model.ActivityBooking{
		ActivityBookingID: uuid.NewString(),
		UserID:            userID,
		ActivityType:      activityType,
		Title:             strings.TrimSpace(req.Title),
		Date:              date,
		TimeSlot:          req.TimeSlot,
		Location:          key.Location,
		Content:           req.Content,
		Status:            model.BookingConfirmed,
		QRCode:            uuid.NewString(),
	}
	if booking.Title == "" {
		booking.Title = string(activityType)
	}
	if req.IdempotencyKey != "" {
		booking.IdempotencyKey = &req.IdempotencyKey
	}
	booking.CreatedBy = &userID
	booking.UpdatedBy = &userID

	var replayed *model.ActivityBooking
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.LockByID(ctx, userID); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			existing, err := tx.ActivityBooking.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
			if err == nil {
				replayed = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		conflict, err := NewConflictDetector(tx, s.opts.Location, s.logger).
			HasConflict(ctx, userID, start, end, "")
		if err != nil {
			return err
		}
		if conflict {
			return ErrTimeConflict
		}

		ok, err := NewCapacityLedger(tx, nil, s.logger).SlotReserve(ctx, key, booking.ActivityBookingID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotTaken
		}
		return tx.ActivityBooking.Create(ctx, booking)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTimeConflict), errors.Is(err, ErrSlotTaken), errors.Is(err, ErrStorageUnavailable):
			return nil, err
		case errors.Is(err, pkgerrors.ErrDuplicateKey) && req.IdempotencyKey != "":
			winner, gerr := s.repo.ActivityBooking.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
			if gerr != nil {
				return nil, storageError(gerr)
			}
			return s.replay(winner, key)
		}
		s.logger.Error("创建活动预约失败", zap.String("user_id", userID), zap.String("slot", key.String()), zap.Error(err))
		return nil, storageError(err)
	}
	if replayed != nil {
		return s.replay(replayed, key)
	}

	s.logger.Info("活动预约已创建",
		zap.String("activity_booking_id", booking.ActivityBookingID),
		zap.String("user_id", userID),
		zap.String("slot", key.String()),
	)
	publish(ctx, s.publisher, s.logger, EventBookingCreated, s.event(EventBookingCreated, booking))

	return toActivityBookingResponse(booking), nil
}

// replay 幂等重放：同一幂等键只能对应同一时段
func (s *activityBookingService) replay(existing *model.ActivityBooking, key model.SlotKey) (*dto.ActivityBookingResponse, error) {
	if existing.SlotKey().String() != key.String() {
		return nil, ErrIdempotencyKeyReused
	}
	return toActivityBookingResponse(existing), nil
}

// ────────────────────── CancelActivityBooking ──────────────────────

func (s *activityBookingService) CancelActivityBooking(ctx context.Context, bookingID string, requester Requester, reason string) (resp *dto.ActivityBookingResponse, err error) {
	ctx, span := tracer.Start(ctx, "ActivityBookingService.CancelActivityBooking", trace.WithAttributes(
		attribute.String("activity_booking_id", bookingID),
	))
	defer func() { recordSpan(span, err); span.End() }()

	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	var (
		booking *model.ActivityBooking
		changed bool
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		b, err := tx.ActivityBooking.GetByIDForUpdate(ctx, bookingID)
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

		if b.Status == model.BookingCancelled {
			return nil
		}

		now := s.opts.Clock.Now()
		b.Status = model.BookingCancelled
		b.CancelledBy = &requester.UserID
		b.CancelledAt = &now
		b.CancelReason = reason
		b.UpdatedBy = &requester.UserID
		if err := tx.ActivityBooking.UpdateStatus(ctx, b); err != nil {
			return err
		}
		changed = true
		return NewCapacityLedger(tx, nil, s.logger).SlotRelease(ctx, b.SlotKey())
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		s.logger.Error("取消活动预约失败", zap.String("activity_booking_id", bookingID), zap.Error(err))
		return nil, storageError(err)
	}

	if changed {
		s.logger.Info("活动预约已取消",
			zap.String("activity_booking_id", booking.ActivityBookingID),
			zap.String("slot", booking.SlotKey().String()),
		)
		publish(ctx, s.publisher, s.logger, EventBookingCancelled, s.event(EventBookingCancelled, booking))
	}
	return toActivityBookingResponse(booking), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *activityBookingService) ListMyActivityBookings(ctx context.Context, userID string, req *dto.PaginationRequest) ([]dto.ActivityBookingResponse, int64, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	bookings, total, err := s.repo.ActivityBooking.ListByUser(ctx, userID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出活动预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, storageError(err)
	}

	result := make([]dto.ActivityBookingResponse, 0, len(bookings))
	for i := range bookings {
		result = append(result, *toActivityBookingResponse(&bookings[i]))
	}
	return result, total, nil
}

func (s *activityBookingService) event(name string, b *model.ActivityBooking) BookingEvent {
	return BookingEvent{
		Event:      name,
		Kind:       KindActivity,
		BookingID:  b.ActivityBookingID,
		UserID:     b.UserID,
		Status:     string(b.Status),
		QRCode:     b.QRCode,
		Reason:     b.CancelReason,
		OccurredAt: s.opts.Clock.Now(),
	}
}
