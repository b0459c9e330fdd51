package model

import "time"

// 评分范围
const (
	MinRating = 1
	MaxRating = 5
)

// CourseFeedback 课程评价 — 对应 course_feedbacks
// 每个预约至多一条，由业务层在预约行锁内保证
type CourseFeedback struct {
	FeedbackID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"feedback_id"`
	BookingID  string    `gorm:"type:uuid;not null;index"                       json:"booking_id"`
	UserID     string    `gorm:"type:uuid;not null"                             json:"user_id"`
	CourseID   string    `gorm:"type:uuid;not null;index"                       json:"course_id"`
	Rating     int       `gorm:"type:smallint;not null"                         json:"rating"`
	Comment    string    `gorm:"type:text"                                      json:"comment"`
	IsPublic   bool      `gorm:"not null;default:false"                         json:"is_public"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (CourseFeedback) TableName() string { return "course_feedbacks" }

// ValidRating 评分是否在 [1,5]
func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }
