package service

import (
	"context"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// ── 日历投影 ──────────────────────────────────────────────
//
// 把用户的有效课程预约与活动预约投影为日历事件，只读，不落库。
// ICS 导出供学员订阅到个人日历。
// ─────────────────────────────────────────────────────────────

const (
	calendarMaxDays   = 366
	calendarICSWindow = 90 // ICS 导出覆盖今天起的天数
	calendarProductID = "-//pilot-course-system//booking//ZH"
)

type eventColor struct{ bg, border, text string }

var (
	courseColors = map[model.CourseCategory]eventColor{
		model.CategoryEmptyRoom: {"#9CA3AF", "#6B7280", "#FFFFFF"},
		model.CategoryTOEIC:     {"#F59E0B", "#D97706", "#FFFFFF"},
		model.CategoryForeignTA: {"#10B981", "#059669", "#FFFFFF"},
		model.CategoryMockExam:  {"#EF4444", "#DC2626", "#FFFFFF"},
	}
	defaultCourseColor = eventColor{"#3B82F6", "#2563EB", "#FFFFFF"}
	activityColor      = eventColor{"#8B5CF6", "#7C3AED", "#FFFFFF"}
	pendingColor       = eventColor{"#FEF3C7", "#F59E0B", "#92400E"}
)

// CalendarService 日历视图与 ICS 导出
type CalendarService interface {
	ListEvents(ctx context.Context, userID string, req *dto.CalendarRequest) ([]dto.CalendarEvent, error)
	ExportICS(ctx context.Context, userID string) ([]byte, error)
}

type calendarService struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, opts Options, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, opts: opts.withDefaults(), logger: logger}
}

// calendarItem 合并课程与活动后的中间结构
type calendarItem struct {
	event       dto.CalendarEvent
	start, end  time.Time
	description string
}

func (s *calendarService) ListEvents(ctx context.Context, userID string, req *dto.CalendarRequest) ([]dto.CalendarEvent, error) {
	from, err := time.ParseInLocation(model.DateLayout, req.From, s.opts.Location)
	if err != nil {
		return nil, ErrInvalidDate
	}
	to, err := time.ParseInLocation(model.DateLayout, req.To, s.opts.Location)
	if err != nil {
		return nil, ErrInvalidDate
	}
	to = to.AddDate(0, 0, 1)
	if !from.Before(to) || to.Sub(from) > calendarMaxDays*24*time.Hour {
		return nil, ErrInvalidDate
	}

	items, err := s.collect(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]dto.CalendarEvent, 0, len(items))
	for _, it := range items {
		events = append(events, it.event)
	}
	return events, nil
}

func (s *calendarService) ExportICS(ctx context.Context, userID string) ([]byte, error) {
	from := model.StartOfDay(s.opts.Clock.Now().In(s.opts.Location), s.opts.Location)
	to := from.AddDate(0, 0, calendarICSWindow)

	items, err := s.collect(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("飞行课程预约")
	cal.SetXWRTimezone(s.opts.Location.String())

	stamp := s.opts.Clock.Now().UTC()
	for _, it := range items {
		evt := cal.AddEvent(it.event.ID + "@pilot-course-system")
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(it.start.UTC())
		evt.SetEndAt(it.end.UTC())
		evt.SetSummary(it.event.Title)
		evt.SetLocation(it.event.ExtendedProps.Location)
		if it.description != "" {
			evt.SetDescription(it.description)
		}
		if it.event.ExtendedProps.Status == string(model.BookingPending) {
			evt.SetStatus(ics.ObjectStatusTentative)
		} else {
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return []byte(cal.Serialize()), nil
}

// collect 取 [from, to) 内的有效预约，按开始时间排序
func (s *calendarService) collect(ctx context.Context, userID string, from, to time.Time) ([]calendarItem, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	bookings, err := s.repo.Booking.ListActiveOverlapping(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询日历课程预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	fromDate := model.StartOfDay(from, time.UTC)
	toDate := model.StartOfDay(to, time.UTC)
	activities, err := s.repo.ActivityBooking.ListActiveBetweenDates(ctx, userID, fromDate, toDate)
	if err != nil {
		s.logger.Error("查询日历活动预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, storageError(err)
	}

	items := make([]calendarItem, 0, len(bookings)+len(activities))
	for i := range bookings {
		b := &bookings[i]
		if b.Course == nil {
			continue
		}
		c := b.Course
		color, ok := courseColors[c.Category]
		if !ok {
			color = defaultCourseColor
		}
		if b.Status == model.BookingPending {
			color = pendingColor
		}
		items = append(items, calendarItem{
			start:       c.StartTime,
			end:         c.EndTime,
			description: c.Description,
			event: dto.CalendarEvent{
				ID:              b.BookingID,
				Title:           c.Name,
				Start:           c.StartTime.In(s.opts.Location).Format(time.RFC3339),
				End:             c.EndTime.In(s.opts.Location).Format(time.RFC3339),
				BackgroundColor: color.bg,
				BorderColor:     color.border,
				TextColor:       color.text,
				ExtendedProps: dto.CalendarEventExtras{
					CourseCode: c.Code,
					Teacher:    c.Teacher,
					Location:   c.Location,
					Type:       KindCourse,
					Status:     string(b.Status),
				},
			},
		})
	}

	for i := range activities {
		a := &activities[i]
		start, end, err := a.Interval(s.opts.Location)
		if err != nil || !model.Overlaps(start, end, from, to) {
			continue
		}
		items = append(items, calendarItem{
			start:       start,
			end:         end,
			description: a.Content,
			event: dto.CalendarEvent{
				ID:              a.ActivityBookingID,
				Title:           a.Title,
				Start:           start.Format(time.RFC3339),
				End:             end.Format(time.RFC3339),
				BackgroundColor: activityColor.bg,
				BorderColor:     activityColor.border,
				TextColor:       activityColor.text,
				ExtendedProps: dto.CalendarEventExtras{
					Location: a.Location,
					Type:     KindActivity,
					Status:   string(a.Status),
				},
			},
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].start.Before(items[j].start) })
	return items, nil
}
