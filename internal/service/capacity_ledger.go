package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// LedgerOverride 人工调整名额的操作者与原因
type LedgerOverride struct {
	OperatorID string
	Reason     string
}

// CapacityLedger 课程名额与活动时段账本
//
// 账本是 current_students 与 activity_slots.occupied 的唯一写入方：
//   - Reserve / SlotReserve 为存储层原子比较并递增，满员时返回 false，绝不超卖
//   - Release / SlotRelease 下限为 0；无可释放时记录一致性告警，不返回错误
//   - Adjust 为唯一的修复通道，必须带原因并写入审计表
type CapacityLedger interface {
	Reserve(ctx context.Context, courseID string) (bool, error)
	Release(ctx context.Context, courseID string) error
	SlotReserve(ctx context.Context, key model.SlotKey, holderID string) (bool, error)
	SlotRelease(ctx context.Context, key model.SlotKey) error
	Adjust(ctx context.Context, courseID string, delta int, override LedgerOverride) (*model.CapacityAdjustment, error)
}

type capacityLedger struct {
	repo   *repository.Repository
	cache  OccupancyCache
	logger *zap.Logger
}

// NewCapacityLedger 创建 CapacityLedger 实例
// 事务内使用时传入事务绑定的 Repository，cache 传 nil，由调用方在提交后失效缓存
func NewCapacityLedger(repo *repository.Repository, cache OccupancyCache, logger *zap.Logger) CapacityLedger {
	if cache == nil {
		cache = nopOccupancyCache{}
	}
	return &capacityLedger{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── 课程名额 ──────────────────────

func (l *capacityLedger) Reserve(ctx context.Context, courseID string) (bool, error) {
	ok, err := l.repo.Capacity.ShiftOccupancy(ctx, courseID, 1)
	if err != nil {
		l.logger.Error("占用课程名额失败", zap.String("course_id", courseID), zap.Error(err))
		return false, storageError(err)
	}
	if !ok {
		// 区分满员与课程不存在
		if _, _, err := l.repo.Capacity.GetOccupancy(ctx, courseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrCourseNotFound
			}
			return false, storageError(err)
		}
		return false, nil
	}

	l.invalidate(ctx, courseID)
	return true, nil
}

func (l *capacityLedger) Release(ctx context.Context, courseID string) error {
	ok, err := l.repo.Capacity.ShiftOccupancy(ctx, courseID, -1)
	if err != nil {
		l.logger.Error("释放课程名额失败", zap.String("course_id", courseID), zap.Error(err))
		return storageError(err)
	}
	if !ok {
		l.logger.Warn("名额账本不一致：释放时已占名额为 0 或课程不存在",
			zap.String("course_id", courseID),
		)
		return nil
	}

	l.invalidate(ctx, courseID)
	return nil
}

// ────────────────────── 活动时段 ──────────────────────

func (l *capacityLedger) SlotReserve(ctx context.Context, key model.SlotKey, holderID string) (bool, error) {
	ok, err := l.repo.Capacity.OccupySlot(ctx, key, holderID)
	if err != nil {
		l.logger.Error("占用活动时段失败", zap.String("slot", key.String()), zap.Error(err))
		return false, storageError(err)
	}
	return ok, nil
}

func (l *capacityLedger) SlotRelease(ctx context.Context, key model.SlotKey) error {
	ok, err := l.repo.Capacity.FreeSlot(ctx, key)
	if err != nil {
		l.logger.Error("释放活动时段失败", zap.String("slot", key.String()), zap.Error(err))
		return storageError(err)
	}
	if !ok {
		l.logger.Warn("名额账本不一致：释放的活动时段本就空闲", zap.String("slot", key.String()))
	}
	return nil
}

// ────────────────────── 人工调整 ──────────────────────

func (l *capacityLedger) Adjust(ctx context.Context, courseID string, delta int, override LedgerOverride) (*model.CapacityAdjustment, error) {
	reason := strings.TrimSpace(override.Reason)
	if reason == "" {
		return nil, ErrOverrideReasonRequired
	}
	if delta == 0 {
		return nil, ErrAdjustmentRejected
	}

	var adj *model.CapacityAdjustment
	err := l.repo.Transaction(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Capacity.ShiftOccupancy(ctx, courseID, delta)
		if err != nil {
			return err
		}
		current, _, err := tx.Capacity.GetOccupancy(ctx, courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}
		if !ok {
			return ErrAdjustmentRejected
		}

		adj = &model.CapacityAdjustment{
			CourseID:    courseID,
			Delta:       delta,
			BeforeCount: current - delta,
			AfterCount:  current,
			Reason:      reason,
			OperatorID:  override.OperatorID,
		}
		return tx.Capacity.CreateAdjustment(ctx, adj)
	})
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) || errors.Is(err, ErrAdjustmentRejected) {
			return nil, err
		}
		l.logger.Error("人工调整名额失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, storageError(err)
	}

	l.logger.Info("名额已人工调整",
		zap.String("course_id", courseID),
		zap.Int("delta", delta),
		zap.Int("after", adj.AfterCount),
		zap.String("operator_id", override.OperatorID),
		zap.String("reason", reason),
	)
	l.invalidate(ctx, courseID)
	return adj, nil
}

func (l *capacityLedger) invalidate(ctx context.Context, courseID string) {
	if err := l.cache.InvalidateOccupancy(ctx, courseID); err != nil {
		l.logger.Warn("失效名额缓存失败", zap.String("course_id", courseID), zap.Error(err))
	}
}
