package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

// CourseListFilters 课程列表筛选条件
type CourseListFilters struct {
	Category string
	From     *time.Time // start_time >= From
	To       *time.Time // start_time < To
}

// CourseRepository 课程数据访问接口
// current_students 的写入只走 CapacityRepository
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, filters *CourseListFilters, offset, limit int) ([]model.Course, int64, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]model.Course, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, filters *CourseListFilters, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Course{})
	if filters != nil {
		if filters.Category != "" {
			db = db.Where("category = ?", filters.Category)
		}
		if filters.From != nil {
			db = db.Where("start_time >= ?", *filters.From)
		}
		if filters.To != nil {
			db = db.Where("start_time < ?", *filters.To)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("start_time ASC").
		Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepo) ListUpcoming(ctx context.Context, from time.Time) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("end_time > ?", from).
		Order("start_time ASC").
		Find(&courses).Error
	return courses, err
}
