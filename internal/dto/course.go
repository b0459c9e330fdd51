package dto

// ── 课程模块 DTO ──

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	PaginationRequest
	Category string `form:"category"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// CourseResponse 课程信息
type CourseResponse struct {
	ID               string   `json:"id"`
	Code             string   `json:"code"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Teacher          string   `json:"teacher"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	Duration         int      `json:"duration"`
	Location         string   `json:"location"`
	MaxStudents      int      `json:"max_students"`
	CurrentStudents  int      `json:"current_students"`
	RequiresApproval bool     `json:"requires_approval"`
	Description      string   `json:"description,omitempty"`
	Image            string   `json:"image,omitempty"`
	Materials        []string `json:"materials,omitempty"`
}

// OccupancyResponse 课程名额占用
type OccupancyResponse struct {
	CourseID    string `json:"course_id"`
	Current     int    `json:"current"`
	MaxStudents int    `json:"max_students"`
	Available   int    `json:"available"`
	Full        bool   `json:"full"`
}

// AdjustCapacityRequest 人工调整名额请求
type AdjustCapacityRequest struct {
	Delta  int    `json:"delta"  binding:"required,min=-1000,max=1000"`
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// CapacityAdjustmentResponse 名额调整记录
type CapacityAdjustmentResponse struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Delta       int    `json:"delta"`
	BeforeCount int    `json:"before_count"`
	AfterCount  int    `json:"after_count"`
	Reason      string `json:"reason"`
	OperatorID  string `json:"operator_id"`
	CreatedAt   string `json:"created_at"`
}

// OccupancyDrift 名额计数与有效预约数不一致的课程
type OccupancyDrift struct {
	CourseID        string `json:"course_id"`
	CurrentStudents int    `json:"current_students"`
	ActiveBookings  int    `json:"active_bookings"`
}
