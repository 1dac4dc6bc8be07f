// Package ratelimit provides request throttling keyed by caller identity.
// Two implementations: an in-process token bucket for single-instance
// deployments and a Redis sliding window for shared state across replicas.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter reports whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds explicit limits; there is no global default.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

type tokenBucket struct {
	cfg Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTokenBucket returns an in-memory per-key limiter.
func NewTokenBucket(cfg Config) Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond) * 2
	}
	return &tokenBucket{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *tokenBucket) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()
	return limiter.Allow(), nil
}

type redisSlidingWindow struct {
	client *goredis.Client
	limit  int
	window time.Duration
}

// NewRedisSlidingWindow returns a limiter that counts requests per key in
// a sliding window, shared across instances.
func NewRedisSlidingWindow(client *goredis.Client, limit int, window time.Duration) Limiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisSlidingWindow{client: client, limit: limit, window: window}
}

func (r *redisSlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	windowStart := now.Add(-r.window)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit redis: %w", err)
	}

	return count.Val() <= int64(r.limit), nil
}
