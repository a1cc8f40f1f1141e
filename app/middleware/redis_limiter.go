package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter 基于Redis的固定窗口限流，多实例共享计数
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		prefix:   "assistant:ratelimit",
		now:      time.Now,
	}
}

// Allow 当前窗口计数加一，未超限时允许
func (l *RedisRateLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("%s:%s:%d", l.prefix, clientID, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(l.requests), nil
}
