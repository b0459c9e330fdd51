package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// ActivityBookingRepository 活动预约数据访问接口
type ActivityBookingRepository interface {
	Create(ctx context.Context, booking *model.ActivityBooking) error
	GetByID(ctx context.Context, id string) (*model.ActivityBooking, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.ActivityBooking, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.ActivityBooking, error)
	// ListActiveBetweenDates 用户在 [fromDate, toDate] 日期内的有效活动预约
	ListActiveBetweenDates(ctx context.Context, userID string, fromDate, toDate time.Time) ([]model.ActivityBooking, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.ActivityBooking, int64, error)
	UpdateStatus(ctx context.Context, booking *model.ActivityBooking) error
}

type activityBookingRepo struct {
	db *gorm.DB
}

// NewActivityBookingRepo 创建 ActivityBookingRepository 实例
func NewActivityBookingRepo(db *gorm.DB) ActivityBookingRepository {
	return &activityBookingRepo{db: db}
}

func (r *activityBookingRepo) Create(ctx context.Context, booking *model.ActivityBooking) error {
	err := r.db.WithContext(ctx).Create(booking).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *activityBookingRepo) GetByID(ctx context.Context, id string) (*model.ActivityBooking, error) {
	var booking model.ActivityBooking
	err := r.db.WithContext(ctx).
		Where("activity_booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *activityBookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ActivityBooking, error) {
	var booking model.ActivityBooking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("activity_booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *activityBookingRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.ActivityBooking, error) {
	var booking model.ActivityBooking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *activityBookingRepo) ListActiveBetweenDates(ctx context.Context, userID string, fromDate, toDate time.Time) ([]model.ActivityBooking, error) {
	var bookings []model.ActivityBooking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, activeStatuses).
		Where("slot_date BETWEEN ? AND ?", fromDate.Format(model.DateLayout), toDate.Format(model.DateLayout)).
		Order("slot_date ASC, time_slot ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *activityBookingRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.ActivityBooking, int64, error) {
	var bookings []model.ActivityBooking
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ActivityBooking{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("slot_date DESC, time_slot DESC").
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *activityBookingRepo) UpdateStatus(ctx context.Context, booking *model.ActivityBooking) error {
	oldVersion := booking.Version
	result := r.db.WithContext(ctx).
		Model(&model.ActivityBooking{}).
		Where("activity_booking_id = ? AND version = ?", booking.ActivityBookingID, oldVersion).
		Updates(map[string]interface{}{
			"status":        booking.Status,
			"cancelled_by":  booking.CancelledBy,
			"cancelled_at":  booking.CancelledAt,
			"cancel_reason": booking.CancelReason,
			"updated_by":    booking.UpdatedBy,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	booking.Version = oldVersion + 1
	return nil
}
