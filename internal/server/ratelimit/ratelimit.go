// Package ratelimit throttles sensitive endpoints such as login and OTP
// issuance with Redis fixed-window counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLimited     = errors.New("rate limited")
	ErrUnavailable = errors.New("rate limiter unavailable")
)

type Limiter interface {
	// Allow records one hit for key and returns ErrLimited once more than
	// limit hits fall in the current window.
	Allow(ctx context.Context, key string, limit int) error
}

// RedisLimiter counts hits with INCR and starts the window with EXPIRE NX in
// the same MULTI, so a counter can never be left without a TTL.
type RedisLimiter struct {
	redis  *redis.Client
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: rdb, window: window, prefix: "taskflow:rl:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) error {
	if limit <= 0 {
		return nil
	}
	k := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if incr.Val() > int64(limit) {
		return ErrLimited
	}
	return nil
}

// Noop allows everything. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string, int) error { return nil }
