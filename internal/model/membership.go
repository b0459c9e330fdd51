package model

import "time"

// MembershipStatus 会员状态
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipExpired MembershipStatus = "expired"
	MembershipPending MembershipStatus = "pending"
)

// Membership 会员资格 — 对应 memberships
// Status 列仅为展示缓存，授权判断一律按日期重新计算
type Membership struct {
	MembershipID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"membership_id"`
	UserID       string           `gorm:"type:uuid;not null;index"                       json:"user_id"`
	CourseName   string           `gorm:"type:varchar(100);not null"                     json:"course_name"`
	StartDate    time.Time        `gorm:"type:date;not null"                             json:"start_date"`
	EndDate      time.Time        `gorm:"type:date;not null"                             json:"end_date"`
	Status       MembershipStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	BaseModel
}

// TableName 指定表名
func (Membership) TableName() string { return "memberships" }

// CoverageWindow 会员有效区间 [start_date 00:00, end_date 次日 00:00)，按 loc 解释日期
func (m *Membership) CoverageWindow(loc *time.Location) (time.Time, time.Time) {
	return StartOfDay(m.StartDate, loc), StartOfDay(m.EndDate, loc).AddDate(0, 0, 1)
}

// Covers at 是否落在有效区间内
func (m *Membership) Covers(at time.Time, loc *time.Location) bool {
	from, to := m.CoverageWindow(loc)
	return !at.Before(from) && at.Before(to)
}

// EffectiveStatus 根据日期推导的实际状态
func (m *Membership) EffectiveStatus(at time.Time, loc *time.Location) MembershipStatus {
	from, to := m.CoverageWindow(loc)
	switch {
	case at.Before(from):
		return MembershipPending
	case at.Before(to):
		return MembershipActive
	default:
		return MembershipExpired
	}
}

// StartOfDay 取 d 的年月日，在 loc 中构造当日零点
// DATE 列读出时为 UTC 零点，不能直接 In(loc)
func StartOfDay(d time.Time, loc *time.Location) time.Time {
	y, mo, day := d.Date()
	return time.Date(y, mo, day, 0, 0, 0, 0, loc)
}
