// Package job 后台定时任务：过期待审核预约、刷新会员状态展示列、名额一致性巡检
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
)

// 单次任务执行的最长时间
const runTimeout = 2 * time.Minute

// PendingExpirer 取消课程已开始仍未审核的预约
type PendingExpirer interface {
	ExpireStalePending(ctx context.Context, now time.Time) (int, error)
}

// MembershipRefresher 按日期重写会员状态展示列
type MembershipRefresher interface {
	RefreshMembershipStatuses(ctx context.Context, now time.Time) (int64, error)
}

// OccupancyAuditor 报告名额计数偏差
type OccupancyAuditor interface {
	AuditOccupancy(ctx context.Context, now time.Time) ([]dto.OccupancyDrift, error)
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron    *cron.Cron
	expirer PendingExpirer
	members MembershipRefresher
	auditor OccupancyAuditor
	now     func() time.Time
	logger  *zap.Logger
}

// NewScheduler 创建调度器并按配置注册任务，cron 表达式按 loc 时区解释
func NewScheduler(
	cfg *config.JobConfig,
	loc *time.Location,
	expirer PendingExpirer,
	members MembershipRefresher,
	auditor OccupancyAuditor,
	logger *zap.Logger,
) (*Scheduler, error) {
	clog := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		expirer: expirer,
		members: members,
		auditor: auditor,
		now:     time.Now,
		logger:  logger,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"expire_pending", cfg.ExpirePending, s.expirePending},
		{"refresh_membership", cfg.RefreshMembership, s.refreshMembership},
		{"occupancy_audit", cfg.OccupancyAudit, s.auditOccupancy},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		name, run := j.name, j.run
		if _, err := s.cron.AddFunc(j.spec, func() { s.runOnce(name, run) }); err != nil {
			return nil, fmt.Errorf("注册定时任务 %s 失败: %w", name, err)
		}
		logger.Info("定时任务已注册", zap.String("job", name), zap.String("spec", j.spec))
	}
	return s, nil
}

// Start 后台启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

func (s *Scheduler) runOnce(name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		s.logger.Error("定时任务执行失败", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("定时任务完成", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}

// ── 任务 ──

func (s *Scheduler) expirePending(ctx context.Context) error {
	n, err := s.expirer.ExpireStalePending(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("已取消过期的待审核预约", zap.Int("count", n))
	}
	return nil
}

func (s *Scheduler) refreshMembership(ctx context.Context) error {
	n, err := s.members.RefreshMembershipStatuses(ctx, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("会员状态已刷新", zap.Int64("updated", n))
	return nil
}

func (s *Scheduler) auditOccupancy(ctx context.Context) error {
	drifts, err := s.auditor.AuditOccupancy(ctx, s.now())
	if err != nil {
		return err
	}
	for _, d := range drifts {
		s.logger.Warn("课程名额计数与有效预约数不一致",
			zap.String("course_id", d.CourseID),
			zap.Int("current_students", d.CurrentStudents),
			zap.Int("active_bookings", d.ActiveBookings),
		)
	}
	return nil
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
