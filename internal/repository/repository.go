package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User            UserRepository
	Membership      MembershipRepository
	Course          CourseRepository
	Booking         BookingRepository
	ActivityBooking ActivityBookingRepository
	Capacity        CapacityRepository
	Feedback        FeedbackRepository
	Location        LocationRepository

	// TxRunner 未绑定数据库时的事务执行器，内存实现可借此模拟回滚
	TxRunner func(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		User:            NewUserRepo(db),
		Membership:      NewMembershipRepo(db),
		Course:          NewCourseRepo(db),
		Booking:         NewBookingRepo(db),
		ActivityBooking: NewActivityBookingRepo(db),
		Capacity:        NewCapacityRepo(db),
		Feedback:        NewFeedbackRepo(db),
		Location:        NewLocationRepo(db),
	}
}

// Transaction 在单个数据库事务中执行 fn，fn 收到绑定该事务的 Repository
// fn 返回错误时整体回滚
// 未绑定数据库（单元测试中手工组装的聚合）时交给 TxRunner，未设置则直接以自身执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		if r.TxRunner != nil {
			return r.TxRunner(ctx, fn)
		}
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
