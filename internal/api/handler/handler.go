package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/response"
)

// 存储暂不可用时建议客户端的重试间隔
const storageRetryAfter = 2 * time.Second

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Course   *CourseHandler
	Booking  *BookingHandler
	Activity *ActivityHandler
	Feedback *FeedbackHandler
	Calendar *CalendarHandler
	Export   *ExportHandler
	Location *LocationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		User:     NewUserHandler(svc.User),
		Course:   NewCourseHandler(svc.Course),
		Booking:  NewBookingHandler(svc.Booking),
		Activity: NewActivityHandler(svc.ActivityBooking),
		Feedback: NewFeedbackHandler(svc.Feedback),
		Calendar: NewCalendarHandler(svc.Calendar),
		Export:   NewExportHandler(svc.Export),
		Location: NewLocationHandler(svc.Location),
	}
}

// ── 通用错误响应 ──

// bindFailed 参数绑定失败；时段与活动类型的格式错误使用专门错误码
func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case tagTimeSlot:
				response.BadRequest(c, 20008, "活动时段格式无效，应为 HH:MM-HH:MM")
				return
			case tagActivityType:
				response.BadRequest(c, 20009, "活动类型无效")
				return
			}
		}
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

// handleCommonError 处理跨模块共用的错误，已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrStorageUnavailable):
		response.ServiceUnavailable(c, 50300, "服务繁忙，请稍后重试", storageRetryAfter)
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10006, "日期格式无效或区间不合法")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 21001, "课程不存在")
	default:
		return false
	}
	return true
}
