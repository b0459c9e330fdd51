package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OccupancyCache 课程名额读缓存（Redis 实现）
// 每次失效递增代号；回填只在代号未变时写入，避免读库期间发生的失效被旧值覆盖
type OccupancyCache interface {
	GetOccupancy(ctx context.Context, courseID string) (current, capacity int, found bool, err error)
	OccupancyGeneration(ctx context.Context, courseID string) (int64, error)
	SetOccupancy(ctx context.Context, courseID string, gen int64, current, capacity int, ttl time.Duration) (bool, error)
	InvalidateOccupancy(ctx context.Context, courseID string) error
}

type nopOccupancyCache struct{}

func (nopOccupancyCache) GetOccupancy(context.Context, string) (int, int, bool, error) {
	return 0, 0, false, nil
}
func (nopOccupancyCache) OccupancyGeneration(context.Context, string) (int64, error) { return 0, nil }
func (nopOccupancyCache) SetOccupancy(context.Context, string, int64, int, int, time.Duration) (bool, error) {
	return false, nil
}
func (nopOccupancyCache) InvalidateOccupancy(context.Context, string) error { return nil }

// TokenBlacklist Token 黑名单（Redis 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// EventPublisher 领域事件发布（RabbitMQ 实现）
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

type nopPublisher struct{}

func (nopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// ── 领域事件 ──

// 事件 routing key
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventFeedbackCreated  = "feedback.created"
)

// 预约种类
const (
	KindCourse   = "course"
	KindActivity = "activity"
)

// BookingEvent 预约状态变化事件，供通知等下游消费
type BookingEvent struct {
	Event      string    `json:"event"`
	Kind       string    `json:"kind"`
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id,omitempty"`
	Status     string    `json:"status"`
	QRCode     string    `json:"qr_code,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FeedbackEvent 新评价事件
type FeedbackEvent struct {
	Event      string    `json:"event"`
	FeedbackID string    `json:"feedback_id"`
	BookingID  string    `json:"booking_id"`
	CourseID   string    `json:"course_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publish 事务提交后发布事件；失败只记日志，不影响已完成的业务
func publish(ctx context.Context, pub EventPublisher, logger *zap.Logger, key string, v any) {
	pctx, cancel := detached(ctx, 3*time.Second)
	defer cancel()
	if err := pub.PublishJSON(pctx, key, v); err != nil {
		logger.Warn("发布领域事件失败", zap.String("routing_key", key), zap.Error(err))
	}
}
