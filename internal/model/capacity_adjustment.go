package model

import "time"

// CapacityAdjustment 名额人工调整审计 — 对应 capacity_adjustments
// 账本唯一的修复通道，每次调整都留痕
type CapacityAdjustment struct {
	AdjustmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"adjustment_id"`
	CourseID     string    `gorm:"type:uuid;not null"                             json:"course_id"`
	Delta        int       `gorm:"not null"                                       json:"delta"`
	BeforeCount  int       `gorm:"not null"                                       json:"before_count"`
	AfterCount   int       `gorm:"not null"                                       json:"after_count"`
	Reason       string    `gorm:"type:varchar(500);not null"                     json:"reason"`
	OperatorID   string    `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (CapacityAdjustment) TableName() string { return "capacity_adjustments" }
