package dto

// ── 日历模块 DTO ──

// CalendarRequest 日历查询区间
type CalendarRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// CalendarEvent 日历视图事件（只读投影）
type CalendarEvent struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Start           string              `json:"start"`
	End             string              `json:"end"`
	BackgroundColor string              `json:"backgroundColor"`
	BorderColor     string              `json:"borderColor"`
	TextColor       string              `json:"textColor"`
	ExtendedProps   CalendarEventExtras `json:"extendedProps"`
}

// CalendarEventExtras 日历事件附加属性
type CalendarEventExtras struct {
	CourseCode string `json:"courseCode,omitempty"`
	Teacher    string `json:"teacher,omitempty"`
	Location   string `json:"location"`
	Type       string `json:"type"` // course | activity
	Status     string `json:"status"`
}
