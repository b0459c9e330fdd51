package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// UserService 学员资料与会员资格查询
type UserService interface {
	// UpdateProfile 学员只能修改自己的资料
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	GetMyMemberships(ctx context.Context, userID string) ([]dto.MembershipResponse, error)
	GetMembershipStatus(ctx context.Context, userID string) (*dto.MembershipStatusResponse, error)
	// RefreshMembershipStatuses 按日期重写 memberships.status 展示列，返回更新行数
	RefreshMembershipStatuses(ctx context.Context, now time.Time) (int64, error)
}

type userService struct {
	repo    *repository.Repository
	opts    Options
	members MembershipValidator
	logger  *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, opts Options, members MembershipValidator, logger *zap.Logger) UserService {
	return &userService{repo: repo, opts: opts.withDefaults(), members: members, logger: logger}
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && email != user.Email {
			existing, err := s.repo.User.GetByEmail(ctx, email)
			if err == nil && existing.UserID != userID {
				return nil, ErrEmailExists
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, storageError(err)
			}
		}
		user.Email = email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = strings.TrimSpace(*req.Address)
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	user.UpdatedBy = &userID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户资料失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) GetMyMemberships(ctx context.Context, userID string) ([]dto.MembershipResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	memberships, err := s.repo.Membership.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询会员资格失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	now := s.opts.Clock.Now()
	result := make([]dto.MembershipResponse, 0, len(memberships))
	for i := range memberships {
		m := &memberships[i]
		result = append(result, dto.MembershipResponse{
			ID:         m.MembershipID,
			CourseName: m.CourseName,
			StartDate:  m.StartDate.Format(model.DateLayout),
			EndDate:    m.EndDate.Format(model.DateLayout),
			Status:     string(m.EffectiveStatus(now, s.opts.Location)),
		})
	}
	return result, nil
}

func (s *userService) GetMembershipStatus(ctx context.Context, userID string) (*dto.MembershipStatusResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	now := s.opts.Clock.Now()
	decision, err := s.members.Validate(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return &dto.MembershipStatusResponse{
		Authorized: decision.Authorized,
		Reason:     decision.Reason,
		CheckedAt:  now.In(s.opts.Location).Format(time.RFC3339),
	}, nil
}

func (s *userService) RefreshMembershipStatuses(ctx context.Context, now time.Time) (int64, error) {
	today := model.StartOfDay(now.In(s.opts.Location), time.UTC)
	n, err := s.repo.Membership.RefreshStatuses(ctx, today)
	if err != nil {
		s.logger.Error("刷新会员状态失败", zap.Error(err))
		return 0, storageError(err)
	}
	s.logger.Info("会员状态已刷新", zap.Int64("rows", n))
	return n, nil
}
