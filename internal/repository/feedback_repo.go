package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

// FeedbackRepository 课程评价数据访问接口
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.CourseFeedback) error
	GetByBooking(ctx context.Context, bookingID string) (*model.CourseFeedback, error)
	ListByCourse(ctx context.Context, courseID string, publicOnly bool, offset, limit int) ([]model.CourseFeedback, int64, error)
}

type feedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo 创建 FeedbackRepository 实例
func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, feedback *model.CourseFeedback) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(feedback).Error
}

func (r *feedbackRepo) GetByBooking(ctx context.Context, bookingID string) (*model.CourseFeedback, error) {
	var feedback model.CourseFeedback
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&feedback).Error
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepo) ListByCourse(ctx context.Context, courseID string, publicOnly bool, offset, limit int) ([]model.CourseFeedback, int64, error) {
	var feedbacks []model.CourseFeedback
	var total int64

	db := r.db.WithContext(ctx).Model(&model.CourseFeedback{}).Where("course_id = ?", courseID)
	if publicOnly {
		db = db.Where("is_public = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&feedbacks).Error; err != nil {
		return nil, 0, err
	}

	return feedbacks, total, nil
}
