package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
	"github.com/Benjamindev1111/pilot-course-system/internal/api/handler"
	"github.com/Benjamindev1111/pilot-course-system/internal/api/router"
	"github.com/Benjamindev1111/pilot-course-system/internal/job"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/database"
	"github.com/Benjamindev1111/pilot-course-system/pkg/jwt"
	applogger "github.com/Benjamindev1111/pilot-course-system/pkg/logger"
	"github.com/Benjamindev1111/pilot-course-system/pkg/mq"
	"github.com/Benjamindev1111/pilot-course-system/pkg/obs"
	"github.com/Benjamindev1111/pilot-course-system/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PILOT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts, err := service.OptionsFromConfig(&cfg.Booking)
	if err != nil {
		logger.Fatal("预约时区配置无效", zap.String("timezone", cfg.Booking.Timezone), zap.Error(err))
	}

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", opts.Location.String()),
	)

	// 3. 链路追踪（未启用时为空实现）
	shutdownTracer, err := obs.InitTracer(&cfg.Trace, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 4. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 5. Redis 与消息队列均为可选，失败时降级运行
	var (
		deps   service.Deps
		guards = router.Guards{Ready: sqlDB.PingContext}
	)

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与名额缓存将不可用", zap.Error(err))
		rdb = nil
	} else {
		deps.Cache = rdb
		deps.Blacklist = rdb
		guards.Blacklist = rdb
		guards.Limiter = rdb
	}

	var publisher *mq.Publisher
	if cfg.MQ.Enabled {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, logger)
		if err != nil {
			logger.Warn("消息队列连接失败，预约事件将不会发布", zap.Error(err))
			publisher = nil
		} else {
			deps.Publisher = publisher
		}
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(opts, repo, jwtMgr, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, guards, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 8. 定时任务
	var scheduler *job.Scheduler
	if cfg.Job.Enabled {
		scheduler, err = job.NewScheduler(&cfg.Job, opts.Location, svc.Booking, svc.User, svc.Course, logger)
		if err != nil {
			logger.Fatal("初始化定时任务失败", zap.Error(err))
		}
		scheduler.Start()
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("关闭消息队列连接失败", zap.Error(err))
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	sqlDB.Close()
	if err := shutdownTracer(ctx); err != nil {
		logger.Warn("关闭链路追踪失败", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}
