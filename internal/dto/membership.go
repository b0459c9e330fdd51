package dto

// ── 会员模块 DTO ──

// MembershipResponse 会员资格（status 为按当前日期推导的实际状态）
type MembershipResponse struct {
	ID         string `json:"id"`
	CourseName string `json:"course_name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status"`
}

// MembershipStatusResponse 当前是否可预约
type MembershipStatusResponse struct {
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"` // expired | not_found
	CheckedAt  string `json:"checked_at"`
}
