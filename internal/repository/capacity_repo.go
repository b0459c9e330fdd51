package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

// CapacityRepository 名额账本存储
// 所有写入都是带条件的单条语句，由数据库行锁保证原子性；不同课程/时段互不阻塞
type CapacityRepository interface {
	// ShiftOccupancy 将课程 current_students 加 delta；结果越出 [0, max_students] 时不修改并返回 false
	ShiftOccupancy(ctx context.Context, courseID string, delta int) (bool, error)
	// GetOccupancy 读取课程当前已占与上限
	GetOccupancy(ctx context.Context, courseID string) (current, capacity int, err error)
	// OccupySlot 占用活动时段；已被占用时返回 false
	OccupySlot(ctx context.Context, key model.SlotKey, holderID string) (bool, error)
	// FreeSlot 释放活动时段；本就空闲时返回 false
	FreeSlot(ctx context.Context, key model.SlotKey) (bool, error)
	CreateAdjustment(ctx context.Context, adj *model.CapacityAdjustment) error
	ListAdjustments(ctx context.Context, courseID string, limit int) ([]model.CapacityAdjustment, error)
}

type capacityRepo struct {
	db *gorm.DB
}

// NewCapacityRepo 创建 CapacityRepository 实例
func NewCapacityRepo(db *gorm.DB) CapacityRepository {
	return &capacityRepo{db: db}
}

func (r *capacityRepo) ShiftOccupancy(ctx context.Context, courseID string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", courseID).
		Where("current_students + ? >= 0 AND current_students + ? <= max_students", delta, delta).
		Updates(map[string]interface{}{
			"current_students": gorm.Expr("current_students + ?", delta),
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *capacityRepo) GetOccupancy(ctx context.Context, courseID string) (int, int, error) {
	var row struct {
		CurrentStudents int
		MaxStudents     int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Select("current_students, max_students").
		Where("course_id = ?", courseID).
		Take(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.CurrentStudents, row.MaxStudents, nil
}

func (r *capacityRepo) OccupySlot(ctx context.Context, key model.SlotKey, holderID string) (bool, error) {
	slot := model.ActivitySlot{
		ActivityType: key.ActivityType,
		Date:         key.Date,
		TimeSlot:     key.TimeSlot,
		Location:     key.Location,
		Occupied:     true,
		HolderID:     &holderID,
	}

	// INSERT ... ON CONFLICT DO UPDATE ... WHERE occupied = false
	// 冲突且已被占用时 WHERE 不成立，影响行数为 0
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "activity_type"}, {Name: "slot_date"}, {Name: "time_slot"}, {Name: "location"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"occupied":   true,
				"holder_id":  holderID,
				"updated_at": gorm.Expr("NOW()"),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Eq{Column: clause.Column{Table: "activity_slots", Name: "occupied"}, Value: false},
			}},
		}).
		Create(&slot)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *capacityRepo) FreeSlot(ctx context.Context, key model.SlotKey) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ActivitySlot{}).
		Where("activity_type = ? AND slot_date = ? AND time_slot = ? AND location = ? AND occupied = ?",
			key.ActivityType, key.Date.Format(model.DateLayout), key.TimeSlot, key.Location, true).
		Updates(map[string]interface{}{
			"occupied":   false,
			"holder_id":  nil,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *capacityRepo) CreateAdjustment(ctx context.Context, adj *model.CapacityAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

func (r *capacityRepo) ListAdjustments(ctx context.Context, courseID string, limit int) ([]model.CapacityAdjustment, error) {
	var adjustments []model.CapacityAdjustment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&adjustments).Error
	return adjustments, err
}
