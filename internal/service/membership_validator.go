package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// 会员校验拒绝原因
const (
	MembershipReasonExpired  = "expired"
	MembershipReasonNotFound = "not_found"
)

// MembershipDecision 会员校验结果
type MembershipDecision struct {
	Authorized bool
	Reason     string // 未授权时为 expired 或 not_found
}

// MembershipValidator 判断用户在某一时刻是否持有有效会员资格
// 纯读操作；有效性按 start_date/end_date 在预约时区内重新计算，忽略存储的 status 列
type MembershipValidator interface {
	Validate(ctx context.Context, userID string, at time.Time) (*MembershipDecision, error)
}

type membershipValidator struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewMembershipValidator 创建 MembershipValidator 实例
func NewMembershipValidator(repo *repository.Repository, loc *time.Location, logger *zap.Logger) MembershipValidator {
	return &membershipValidator{repo: repo, loc: loc, logger: logger}
}

func (v *membershipValidator) Validate(ctx context.Context, userID string, at time.Time) (*MembershipDecision, error) {
	memberships, err := v.repo.Membership.ListByUser(ctx, userID)
	if err != nil {
		v.logger.Error("查询会员资格失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	expired := false
	for i := range memberships {
		m := &memberships[i]
		if m.Covers(at, v.loc) {
			return &MembershipDecision{Authorized: true}, nil
		}
		if _, to := m.CoverageWindow(v.loc); !at.Before(to) {
			expired = true
		}
	}

	if expired {
		return &MembershipDecision{Reason: MembershipReasonExpired}, nil
	}
	return &MembershipDecision{Reason: MembershipReasonNotFound}, nil
}
