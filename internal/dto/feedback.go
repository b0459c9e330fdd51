package dto

// ── 评价模块 DTO ──

// AttachFeedbackRequest 提交课程评价请求
// rating 范围由业务层校验，以便返回专门的错误码
type AttachFeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"   binding:"omitempty,max=2000"`
	IsPublic bool   `json:"is_public"`
}

// FeedbackListRequest 课程评价列表查询参数
type FeedbackListRequest struct {
	PaginationRequest
}

// FeedbackResponse 课程评价
type FeedbackResponse struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	CourseID  string `json:"course_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	IsPublic  bool   `json:"is_public"`
	CreatedAt string `json:"created_at"`
}
