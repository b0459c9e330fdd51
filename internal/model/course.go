package model

import "time"

// CourseCategory 课程类别
type CourseCategory string

const (
	CategoryEmptyRoom CourseCategory = "空教室"
	CategoryC01       CourseCategory = "C01"
	CategoryC02       CourseCategory = "C02"
	CategoryC03       CourseCategory = "C03"
	CategoryC04       CourseCategory = "C04"
	CategoryTOEIC     CourseCategory = "多益"
	CategoryForeignTA CourseCategory = "外師&助教"
	CategoryMockExam  CourseCategory = "模擬考"
)

var courseCategories = map[CourseCategory]bool{
	CategoryEmptyRoom: true,
	CategoryC01:       true,
	CategoryC02:       true,
	CategoryC03:       true,
	CategoryC04:       true,
	CategoryTOEIC:     true,
	CategoryForeignTA: true,
	CategoryMockExam:  true,
}

// Valid 是否为已知类别
func (c CourseCategory) Valid() bool { return courseCategories[c] }

// Course 课程 — 对应 courses
// current_students 只能经由名额账本修改，数据库 CHECK 约束兜底 0 <= current <= max
type Course struct {
	CourseID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Code             string         `gorm:"type:varchar(30);not null"                      json:"code"`
	Name             string         `gorm:"type:varchar(100);not null"                     json:"name"`
	Category         CourseCategory `gorm:"type:varchar(20);not null"                      json:"category"`
	Teacher          string         `gorm:"type:varchar(100);not null"                     json:"teacher"`
	StartTime        time.Time      `gorm:"not null"                                       json:"start_time"`
	EndTime          time.Time      `gorm:"not null"                                       json:"end_time"`
	Duration         int            `gorm:"not null"                                       json:"duration"` // 分钟
	Location         string         `gorm:"type:varchar(100);not null"                     json:"location"`
	MaxStudents      int            `gorm:"not null"                                       json:"max_students"`
	CurrentStudents  int            `gorm:"not null;default:0"                             json:"current_students"`
	RequiresApproval bool           `gorm:"not null;default:false"                         json:"requires_approval"`
	Description      string         `gorm:"type:text"                                      json:"description,omitempty"`
	Image            string         `gorm:"type:varchar(500)"                              json:"image,omitempty"`
	Materials        StringArray    `gorm:"type:text[]"                                    json:"materials,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// IsFull 名额已满
func (c *Course) IsFull() bool { return c.CurrentStudents >= c.MaxStudents }

// Available 剩余名额
func (c *Course) Available() int {
	if n := c.MaxStudents - c.CurrentStudents; n > 0 {
		return n
	}
	return 0
}

// HasEnded 课程在 now 时是否已结束
func (c *Course) HasEnded(now time.Time) bool { return !now.Before(c.EndTime) }

// HasStarted 课程在 now 时是否已开始
func (c *Course) HasStarted(now time.Time) bool { return !now.Before(c.StartTime) }
