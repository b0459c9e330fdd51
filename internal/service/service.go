package service

import (
	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	"github.com/Benjamindev1111/pilot-course-system/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth            AuthService
	User            UserService
	Course          CourseService
	Booking         BookingService
	ActivityBooking ActivityBookingService
	Feedback        FeedbackService
	Calendar        CalendarService
	Export          ExportService
	Location        LocationService
}

// Deps 外部协作方；cache / blacklist / publisher 可为 nil
type Deps struct {
	Cache     OccupancyCache
	Blacklist TokenBlacklist
	Publisher EventPublisher
}

// OptionsFromConfig 由预约配置构造运行参数
func OptionsFromConfig(cfg *config.BookingConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:          loc,
		StorageTimeout:    cfg.StorageTimeout,
		OccupancyCacheTTL: cfg.OccupancyCacheTTL,
		Clock:             SystemClock(),
	}, nil
}

// NewService 创建 Service 聚合
func NewService(
	opts Options,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	opts = opts.withDefaults()

	members := NewMembershipValidator(repo, opts.Location, logger)
	ledger := NewCapacityLedger(repo, deps.Cache, logger)

	return &Service{
		Auth:            NewAuthService(repo, jwtMgr, deps.Blacklist, logger),
		User:            NewUserService(repo, opts, members, logger),
		Course:          NewCourseService(repo, opts, ledger, deps.Cache, logger),
		Booking:         NewBookingService(repo, opts, members, deps.Cache, deps.Publisher, logger),
		ActivityBooking: NewActivityBookingService(repo, opts, members, deps.Publisher, logger),
		Feedback:        NewFeedbackService(repo, opts, deps.Publisher, logger),
		Calendar:        NewCalendarService(repo, opts, logger),
		Export:          NewExportService(repo, opts, logger),
		Location:        NewLocationService(repo, opts, logger),
	}
}
