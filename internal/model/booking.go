package model

import "time"

// BookingStatus 预约状态
// requested 只存在于请求处理过程中，从不落库
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// IsActive pending 与 confirmed 占用名额并参与时间冲突判断
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

// CanTransitionTo 状态机：pending→confirmed，pending|confirmed→cancelled，cancelled 为终态
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled
	default:
		return false
	}
}

// CancelReasonExpired 待审核预约在课程开始前未被确认，由定时任务取消
const CancelReasonExpired = "expired"

// Booking 课程预约 — 对应 bookings
type Booking struct {
	BookingID      string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	UserID         string        `gorm:"type:uuid;not null"                             json:"user_id"`
	CourseID       string        `gorm:"type:uuid;not null"                             json:"course_id"`
	BookingDate    time.Time     `gorm:"not null"                                       json:"booking_date"`
	Status         BookingStatus `gorm:"type:varchar(20);not null"                      json:"status"`
	QRCode         string        `gorm:"type:varchar(64);not null"                      json:"qr_code"`
	IdempotencyKey *string       `gorm:"type:varchar(128)"                              json:"-"`
	ConfirmedBy    *string       `gorm:"type:uuid"                                      json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time    `gorm:"type:timestamptz"                               json:"confirmed_at,omitempty"`
	CancelledBy    *string       `gorm:"type:uuid"                                      json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time    `gorm:"type:timestamptz"                               json:"cancelled_at,omitempty"`
	CancelReason   string        `gorm:"type:varchar(200)"                              json:"cancel_reason,omitempty"`
	Version        int           `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
	User   *User   `gorm:"foreignKey:UserID;references:UserID"     json:"user,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }

// Overlaps 半开区间 [aStart, aEnd) 与 [bStart, bEnd) 是否相交，首尾相接不算冲突
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
