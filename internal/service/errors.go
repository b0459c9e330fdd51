package service

import (
	"errors"
	"fmt"

	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// ── 预约核心业务错误 ──

var (
	ErrMembershipInvalid     = errors.New("会员资格无效")
	ErrTimeConflict          = errors.New("与已有预约时间冲突")
	ErrCourseFull            = errors.New("课程名额已满")
	ErrSlotTaken             = errors.New("该活动时段已被预约")
	ErrBookingNotFound       = errors.New("预约不存在")
	ErrBookingNotEligible    = errors.New("预约当前状态不允许该操作")
	// 业务层不返回：重复取消按成功处理，仅供 booking_handler.go 的错误映射保持完整
	ErrAlreadyCancelled      = errors.New("预约已取消")
	ErrFeedbackAlreadyExists = errors.New("该预约已有评价")
	ErrInvalidRating         = errors.New("评分必须在 1-5 之间")
	ErrUnauthorized          = errors.New("无权操作该预约")
	ErrStorageUnavailable    = errors.New("存储暂时不可用，请稍后重试")

	ErrCourseNotFound         = errors.New("课程不存在")
	ErrInvalidTimeSlot        = errors.New("活动时段格式无效")
	ErrInvalidActivityType    = errors.New("活动类型无效")
	ErrInvalidDate            = errors.New("日期格式无效")
	ErrIdempotencyKeyReused   = errors.New("幂等键已用于其他预约请求")
	ErrOverrideReasonRequired = errors.New("人工调整名额必须填写原因")
	ErrAdjustmentRejected     = errors.New("调整后名额越界")
)

// IsRetryable 错误是否可由调用方重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// storageError 将超时、断连、乐观锁冲突等可重试的存储故障统一归为 ErrStorageUnavailable，其余原样返回
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	// 乐观锁冲突说明行已被并发修改，调用方重试即可
	if !pkgerrors.IsTransient(err) && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
