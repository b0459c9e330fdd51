package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
	"github.com/Benjamindev1111/pilot-course-system/internal/api/handler"
	"github.com/Benjamindev1111/pilot-course-system/internal/api/middleware"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/pkg/jwt"
)

// Guards 路由依赖的外部组件，均可为 nil
type Guards struct {
	Blacklist middleware.TokenBlacklist
	Limiter   middleware.RateLimiter
	// Ready 就绪检查，通常为数据库 Ping
	Ready func(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, guards Guards, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(cfg.Trace.ServiceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Server.MaxBodyBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if guards.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := guards.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	limit := middleware.RateLimit(guards.Limiter, cfg.Server.RateLimit, cfg.Server.RateWindow)
	adminOnly := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(limit)
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/register", h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, guards.Blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", limit, h.Auth.ChangePassword)

			// 个人资料与会员资格
			users := authorized.Group("/users/me")
			{
				users.PUT("", h.User.UpdateProfile)
				users.GET("/memberships", h.User.ListMyMemberships)
				users.GET("/membership-status", h.User.GetMembershipStatus)
			}

			// 课程与名额
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.GET("/:id/occupancy", h.Course.GetOccupancy)
				courses.GET("/:id/feedback", h.Feedback.ListCourseFeedback)
			}

			// 课程预约
			bookings := authorized.Group("/bookings")
			{
				bookings.POST("", limit, h.Booking.CreateBooking)
				bookings.GET("/me", h.Booking.ListMyBookings)
				bookings.GET("/:id", h.Booking.GetBooking)
				bookings.POST("/:id/cancel", limit, h.Booking.CancelBooking)
				bookings.POST("/:id/feedback", limit, h.Feedback.AttachFeedback)
			}

			// 活动时段预约
			activities := authorized.Group("/activity-bookings")
			{
				activities.POST("", limit, h.Activity.CreateActivityBooking)
				activities.GET("/me", h.Activity.ListMyActivityBookings)
				activities.POST("/:id/cancel", limit, h.Activity.CancelActivityBooking)
			}

			// 个人日历
			calendar := authorized.Group("/calendar")
			{
				calendar.GET("/events", h.Calendar.ListEvents)
				calendar.GET("/me.ics", h.Calendar.ExportICS)
			}

			// 活动场地（学员只读）
			locations := authorized.Group("/locations")
			{
				locations.GET("", h.Location.ListLocations)
				locations.GET("/:id", h.Location.GetLocation)
				locations.POST("", adminOnly, h.Location.CreateLocation)
				locations.PUT("/:id", adminOnly, h.Location.UpdateLocation)
				locations.DELETE("/:id", adminOnly, h.Location.DeleteLocation)
			}

			// 管理端
			admin := authorized.Group("/admin")
			admin.Use(adminOnly)
			{
				admin.GET("/bookings/pending", h.Booking.ListPendingBookings)
				admin.POST("/bookings/:id/confirm", h.Booking.ConfirmBooking)
				admin.POST("/courses/:id/ledger/adjust", h.Course.AdjustCapacity)
				admin.GET("/courses/:id/ledger/adjustments", h.Course.ListAdjustments)
				admin.GET("/courses/:id/roster.xlsx", h.Export.ExportRoster)
				admin.GET("/occupancy-audit", h.Course.AuditOccupancy)
			}
		}
	}

	return r, nil
}
