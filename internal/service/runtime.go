package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/Benjamindev1111/pilot-course-system/internal/service")

// Clock 时间来源，测试中可替换
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return systemClock{} }

// Requester 发起操作的身份
type Requester struct {
	UserID  string
	IsAdmin bool
}

// Options 预约核心的运行参数
type Options struct {
	Location          *time.Location
	StorageTimeout    time.Duration
	OccupancyCacheTTL time.Duration
	Clock             Clock
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	return o
}

// withStorageTimeout 调用方未设置截止时间时补上默认存储超时
func withStorageTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// detached 提交后的收尾操作使用：脱离已取消的请求上下文，另设短超时
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// recordSpan 在 span 上记录失败结果
func recordSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
