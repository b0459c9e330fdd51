package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

var activeStatuses = []model.BookingStatus{model.BookingPending, model.BookingConfirmed}

// BookingListFilters 预约列表筛选条件
type BookingListFilters struct {
	UserID   string
	CourseID string
	Status   model.BookingStatus
}

// BookingRepository 课程预约数据访问接口
type BookingRepository interface {
	// Create 插入预约；(user_id, idempotency_key) 冲突时返回 pkgerrors.ErrDuplicateKey
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// GetByIDForUpdate 在当前事务中锁定预约行
	GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Booking, error)
	// ListActiveOverlapping 用户在 [start, end) 内与之相交的有效课程预约（预加载课程）
	ListActiveOverlapping(ctx context.Context, userID string, start, end time.Time) ([]model.Booking, error)
	List(ctx context.Context, filters *BookingListFilters, offset, limit int) ([]model.Booking, int64, error)
	// ListStalePending 课程已开始但仍待审核的预约 ID
	ListStalePending(ctx context.Context, now time.Time, limit int) ([]string, error)
	// ListActiveByCourse 课程的有效预约（预加载学员）
	ListActiveByCourse(ctx context.Context, courseID string) ([]model.Booking, error)
	CountActiveByCourse(ctx context.Context) (map[string]int, error)
	// UpdateStatus 乐观锁更新状态相关字段
	UpdateStatus(ctx context.Context, booking *model.Booking) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}

	var course model.Course
	if err := r.db.WithContext(ctx).Where("course_id = ?", booking.CourseID).First(&course).Error; err != nil {
		return nil, err
	}
	booking.Course = &course
	return &booking, nil
}

func (r *bookingRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) ListActiveOverlapping(ctx context.Context, userID string, start, end time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Preload("Course").
		Joins("JOIN courses ON courses.course_id = bookings.course_id").
		Where("bookings.user_id = ? AND bookings.status IN ?", userID, activeStatuses).
		Where("courses.start_time < ? AND courses.end_time > ?", end, start).
		Order("courses.start_time ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) List(ctx context.Context, filters *BookingListFilters, offset, limit int) ([]model.Booking, int64, error) {
	var bookings []model.Booking
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Booking{})
	if filters != nil {
		if filters.UserID != "" {
			db = db.Where("user_id = ?", filters.UserID)
		}
		if filters.CourseID != "" {
			db = db.Where("course_id = ?", filters.CourseID)
		}
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Course").Preload("User").
		Offset(offset).Limit(limit).
		Order("booking_date DESC").
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *bookingRepo) ListStalePending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Joins("JOIN courses ON courses.course_id = bookings.course_id").
		Where("bookings.status = ? AND courses.start_time <= ?", model.BookingPending, now).
		Order("courses.start_time ASC").
		Limit(limit).
		Pluck("bookings.booking_id", &ids).Error
	return ids, err
}

func (r *bookingRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("course_id = ? AND status IN ?", courseID, activeStatuses).
		Order("booking_date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) CountActiveByCourse(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CourseID string
		N        int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("course_id, COUNT(*) AS n").
		Where("status IN ?", activeStatuses).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.N
	}
	return counts, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, booking *model.Booking) error {
	oldVersion := booking.Version
	result := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("booking_id = ? AND version = ?", booking.BookingID, oldVersion).
		Updates(map[string]interface{}{
			"status":        booking.Status,
			"confirmed_by":  booking.ConfirmedBy,
			"confirmed_at":  booking.ConfirmedAt,
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
