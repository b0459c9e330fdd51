package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

// MembershipRepository 会员资格数据访问接口（只读为主）
type MembershipRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Membership, error)
	// RefreshStatuses 按 today（预约时区的日期）重写展示用 status 列，返回变更行数
	RefreshStatuses(ctx context.Context, today time.Time) (int64, error)
}

type membershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepo 创建 MembershipRepository 实例
func NewMembershipRepo(db *gorm.DB) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID string) ([]model.Membership, error) {
	var memberships []model.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("end_date DESC").
		Find(&memberships).Error
	return memberships, err
}

func (r *membershipRepo) RefreshStatuses(ctx context.Context, today time.Time) (int64, error) {
	day := today.Format(model.DateLayout)
	result := r.db.WithContext(ctx).Exec(`
		UPDATE memberships SET
			status = CASE
				WHEN start_date > ?::date THEN 'pending'
				WHEN end_date < ?::date THEN 'expired'
				ELSE 'active'
			END,
			updated_at = NOW()
		WHERE status IS DISTINCT FROM CASE
				WHEN start_date > ?::date THEN 'pending'
				WHEN end_date < ?::date THEN 'expired'
				ELSE 'active'
			END`,
		day, day, day, day,
	)
	return result.RowsAffected, result.Error
}
