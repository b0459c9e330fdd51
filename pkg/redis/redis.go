package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、接口限流与课程名额读缓存；名额本身以数据库为准
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

// CheckRateLimit 基于有序集合的滑动窗口计数
// 返回 true 表示本次请求允许通过
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMicro()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// ── 课程名额缓存 ──

const (
	occupancyPrefix    = "course:occupancy:"
	occupancyGenPrefix = "course:occupancy:gen:"
	occupancyGenTTL    = 24 * time.Hour
)

// setOccupancyScript 代号一致时才写入名额，代号键缺失视为 0
var setOccupancyScript = goredis.NewScript(`
	local gen = redis.call('GET', KEYS[2]) or '0'
	if gen ~= ARGV[1] then
		return 0
	end
	redis.call('HSET', KEYS[1], 'current', ARGV[2], 'max', ARGV[3])
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
	return 1
`)

// GetOccupancy 读取缓存的课程已占/上限，found=false 表示未命中
func (c *Client) GetOccupancy(ctx context.Context, courseID string) (current, capacity int, found bool, err error) {
	vals, err := c.rdb.HMGet(ctx, occupancyPrefix+courseID, "current", "max").Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return 0, 0, false, nil
	}

	current, err1 := strconv.Atoi(fmt.Sprint(vals[0]))
	capacity, err2 := strconv.Atoi(fmt.Sprint(vals[1]))
	if err := errors.Join(err1, err2); err != nil {
		// 缓存内容损坏视为未命中
		c.logger.Warn("名额缓存内容无效", zap.String("course_id", courseID), zap.Error(err))
		return 0, 0, false, nil
	}
	return current, capacity, true, nil
}

// OccupancyGeneration 读取课程名额缓存的失效代号
func (c *Client) OccupancyGeneration(ctx context.Context, courseID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, occupancyGenPrefix+courseID).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetOccupancy 回填课程名额缓存；gen 与当前代号不一致时不写入并返回 false
func (c *Client) SetOccupancy(ctx context.Context, courseID string, gen int64, current, capacity int, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	keys := []string{occupancyPrefix + courseID, occupancyGenPrefix + courseID}
	n, err := setOccupancyScript.Run(ctx, c.rdb, keys, gen, current, capacity, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InvalidateOccupancy 名额变动后递增代号并删除缓存
func (c *Client) InvalidateOccupancy(ctx context.Context, courseID string) error {
	genKey := occupancyGenPrefix + courseID
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, occupancyGenTTL)
	pipe.Del(ctx, occupancyPrefix+courseID)
	_, err := pipe.Exec(ctx)
	return err
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
