// Package ratelimit limits how often a key may act within sliding windows.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limits caps attempts per window. A zero limit disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// RateLimiter decides whether key may make another attempt.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisRateLimiter keeps one sorted set of attempt timestamps per key and
// window, so limits hold across every panel instance sharing the Redis.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limits Limits
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limits Limits) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limits: limits,
	}
}

// Allow records the attempt and reports whether it is within every window.
// Denied attempts are recorded too.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, l.limits.PerMinute},
		{time.Hour, l.limits.PerHour},
	}

	allowed := true
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		count, err := l.record(ctx, l.key(key, w.duration), w.duration, now)
		if err != nil {
			return false, err
		}
		if count >= int64(w.limit) {
			allowed = false
		}
	}

	return allowed, nil
}

// record trims the window, adds this attempt and returns how many attempts
// preceded it.
func (l *RedisRateLimiter) record(ctx context.Context, redisKey string, window time.Duration, now time.Time) (int64, error) {
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", windowStart)
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return zcard.Val(), nil
}

func (l *RedisRateLimiter) key(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s", l.prefix, identifier, window.String())
}
