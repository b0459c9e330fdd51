package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// ConflictDetector 判断用户在 [start, end) 是否已有相交的有效预约
// 课程预约与活动预约统一按半开区间比较，首尾相接不算冲突；已取消的预约不参与
type ConflictDetector interface {
	HasConflict(ctx context.Context, userID string, start, end time.Time, excludeBookingID string) (bool, error)
}

type conflictDetector struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewConflictDetector 创建 ConflictDetector 实例
// 事务内复查时传入事务绑定的 Repository
func NewConflictDetector(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ConflictDetector {
	return &conflictDetector{repo: repo, loc: loc, logger: logger}
}

func (d *conflictDetector) HasConflict(ctx context.Context, userID string, start, end time.Time, excludeBookingID string) (bool, error) {
	// 1. 课程预约（区间来自课程）
	bookings, err := d.repo.Booking.ListActiveOverlapping(ctx, userID, start, end)
	if err != nil {
		return false, storageError(err)
	}
	for i := range bookings {
		b := &bookings[i]
		if b.BookingID == excludeBookingID || b.Course == nil {
			continue
		}
		if model.Overlaps(start, end, b.Course.StartTime, b.Course.EndTime) {
			d.logger.Debug("检测到课程预约时间冲突",
				zap.String("user_id", userID),
				zap.String("booking_id", b.BookingID),
			)
			return true, nil
		}
	}

	// 2. 活动预约（区间来自日期 + 时段），日期前后各放宽一天覆盖时区差
	fromDate := model.StartOfDay(start.In(d.loc), time.UTC).AddDate(0, 0, -1)
	toDate := model.StartOfDay(end.In(d.loc), time.UTC).AddDate(0, 0, 1)
	activities, err := d.repo.ActivityBooking.ListActiveBetweenDates(ctx, userID, fromDate, toDate)
	if err != nil {
		return false, storageError(err)
	}
	for i := range activities {
		a := &activities[i]
		if a.ActivityBookingID == excludeBookingID {
			continue
		}
		aStart, aEnd, err := a.Interval(d.loc)
		if err != nil {
			d.logger.Warn("活动预约时段无法解析，跳过冲突判断",
				zap.String("activity_booking_id", a.ActivityBookingID),
				zap.String("time_slot", a.TimeSlot),
			)
			continue
		}
		if model.Overlaps(start, end, aStart, aEnd) {
			d.logger.Debug("检测到活动预约时间冲突",
				zap.String("user_id", userID),
				zap.String("activity_booking_id", a.ActivityBookingID),
			)
			return true, nil
		}
	}

	return false, nil
}
