package dto

// ── 预约模块 DTO ──

// CreateBookingRequest 创建课程预约请求
// IdempotencyKey 来自请求头 Idempotency-Key
type CreateBookingRequest struct {
	CourseID       string `json:"course_id" binding:"required,uuid"`
	IdempotencyKey string `json:"-"`
}

// CreateActivityBookingRequest 创建活动预约请求
type CreateActivityBookingRequest struct {
	ActivityType   string `json:"activity_type" binding:"required,activitytype"`
	Date           string `json:"date"          binding:"required,datetime=2006-01-02"`
	TimeSlot       string `json:"time_slot"     binding:"required,timeslot"`
	Location       string `json:"location"      binding:"required,max=100"`
	Title          string `json:"title"         binding:"omitempty,max=100"`
	Content        string `json:"content"       binding:"omitempty,max=2000"`
	IdempotencyKey string `json:"-"`
}

// CancelBookingRequest 取消预约请求
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// BookingListRequest 预约列表查询参数
type BookingListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
}

// BookingResponse 课程预约
type BookingResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CourseID     string          `json:"course_id"`
	Course       *CourseResponse `json:"course,omitempty"`
	BookingDate  string          `json:"booking_date"`
	Status       string          `json:"status"`
	QRCode       string          `json:"qr_code"`
	ConfirmedBy  string          `json:"confirmed_by,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CancelledAt  string          `json:"cancelled_at,omitempty"`
	HasFeedback  bool            `json:"has_feedback,omitempty"`
}

// ActivityBookingResponse 活动预约
type ActivityBookingResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	ActivityType string `json:"activity_type"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	TimeSlot     string `json:"time_slot"`
	Location     string `json:"location"`
	Content      string `json:"content,omitempty"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// RosterEntry 课程名单条目
type RosterEntry struct {
	StudentID   string
	Name        string
	Email       string
	Phone       string
	Status      string
	BookingDate string
}
