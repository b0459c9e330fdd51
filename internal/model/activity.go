package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActivityType 活动类型
type ActivityType string

const (
	ActivityPastExams  ActivityType = "架上考古題"
	ActivityVisionBox  ActivityType = "視力箱"
	ActivitySimulator  ActivityType = "大型模擬機"
	ActivityUltralight ActivityType = "輕航機"
	ActivityVienna     ActivityType = "維也納"
	ActivityMemoryTest ActivityType = "記憶力"
)

var activityTypes = map[ActivityType]bool{
	ActivityPastExams:  true,
	ActivityVisionBox:  true,
	ActivitySimulator:  true,
	ActivityUltralight: true,
	ActivityVienna:     true,
	ActivityMemoryTest: true,
}

// Valid 是否为已知活动类型
func (t ActivityType) Valid() bool { return activityTypes[t] }

// DateLayout 活动日期格式
const DateLayout = "2006-01-02"

// ErrInvalidTimeSlot 时段格式错误
var ErrInvalidTimeSlot = errors.New("时段格式应为 HH:MM-HH:MM 且开始早于结束")

// ParseTimeSlot 解析 "14:00-17:00"，返回当日起止分钟数
// 不支持跨午夜时段
func ParseTimeSlot(slot string) (startMin, endMin int, err error) {
	from, to, ok := strings.Cut(slot, "-")
	if !ok {
		return 0, 0, ErrInvalidTimeSlot
	}
	if startMin, err = parseClock(from); err != nil {
		return 0, 0, err
	}
	if endMin, err = parseClock(to); err != nil {
		return 0, 0, err
	}
	if startMin >= endMin {
		return 0, 0, ErrInvalidTimeSlot
	}
	return startMin, endMin, nil
}

func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, ErrInvalidTimeSlot
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, ErrInvalidTimeSlot
	}
	return h*60 + m, nil
}

// SlotInterval 活动时段在 loc 中的绝对时间区间
func SlotInterval(date time.Time, slot string, loc *time.Location) (time.Time, time.Time, error) {
	startMin, endMin, err := ParseTimeSlot(slot)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := StartOfDay(date, loc)
	return day.Add(time.Duration(startMin) * time.Minute), day.Add(time.Duration(endMin) * time.Minute), nil
}

// SlotKey 活动时段账本键：同一 (类型, 日期, 时段, 场地) 只能被一个预约占用
type SlotKey struct {
	ActivityType ActivityType
	Date         time.Time
	TimeSlot     string
	Location     string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.ActivityType, k.Date.Format(DateLayout), k.TimeSlot, k.Location)
}

// ActivityBooking 活动预约 — 对应 activity_bookings
type ActivityBooking struct {
	ActivityBookingID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_booking_id"`
	UserID            string        `gorm:"type:uuid;not null"                             json:"user_id"`
	ActivityType      ActivityType  `gorm:"type:varchar(20);not null"                      json:"activity_type"`
	Title             string        `gorm:"type:varchar(100);not null"                     json:"title"`
	Date              time.Time     `gorm:"column:slot_date;type:date;not null"            json:"date"`
	TimeSlot          string        `gorm:"type:varchar(11);not null"                      json:"time_slot"`
	Location          string        `gorm:"type:varchar(100);not null"                     json:"location"`
	Content           string        `gorm:"type:text"                                      json:"content,omitempty"`
	Status            BookingStatus `gorm:"type:varchar(20);not null"                      json:"status"`
	QRCode            string        `gorm:"type:varchar(64);not null"                      json:"qr_code"`
	IdempotencyKey    *string       `gorm:"type:varchar(128)"                              json:"-"`
	CancelledBy       *string       `gorm:"type:uuid"                                      json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time    `gorm:"type:timestamptz"                               json:"cancelled_at,omitempty"`
	CancelReason      string        `gorm:"type:varchar(200)"                              json:"cancel_reason,omitempty"`
	Version           int           `gorm:"not null;default:1"                             json:"version"`
	BaseModel
}

// TableName 指定表名
func (ActivityBooking) TableName() string { return "activity_bookings" }

// SlotKey 该预约占用的账本键
func (a *ActivityBooking) SlotKey() SlotKey {
	return SlotKey{ActivityType: a.ActivityType, Date: a.Date, TimeSlot: a.TimeSlot, Location: a.Location}
}

// Interval 该预约的绝对时间区间
func (a *ActivityBooking) Interval(loc *time.Location) (time.Time, time.Time, error) {
	return SlotInterval(a.Date, a.TimeSlot, loc)
}

// ActivitySlot 活动时段占用账本 — 对应 activity_slots
type ActivitySlot struct {
	ActivityType ActivityType `gorm:"type:varchar(20);primaryKey"            json:"activity_type"`
	Date         time.Time    `gorm:"column:slot_date;type:date;primaryKey" json:"date"`
	TimeSlot     string       `gorm:"type:varchar(11);primaryKey"            json:"time_slot"`
	Location     string       `gorm:"type:varchar(100);primaryKey"           json:"location"`
	Occupied     bool         `gorm:"not null;default:false"                 json:"occupied"`
	HolderID     *string      `gorm:"type:uuid"                              json:"holder_id,omitempty"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"     json:"updated_at"`
}

// TableName 指定表名
func (ActivitySlot) TableName() string { return "activity_slots" }
