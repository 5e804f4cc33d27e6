package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter counts requests per key inside fixed windows
type RateLimiter interface {
	// Allow reports whether the request may proceed, the remaining budget and the window reset time
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
	// Reset resets the counter for a specific key
	Reset(ctx context.Context, key string) error
	// WithLimit derives a limiter sharing the backend with a different budget
	WithLimit(maxAttempts int64, window time.Duration) RateLimiter
}

// RedisRateLimiter implements rate limiting using Redis
type RedisRateLimiter struct {
	client      *redis.Client
	prefix      string
	window      time.Duration
	maxAttempts int64
}

// NewRedisRateLimiter creates a new rate limiter using Redis
func NewRedisRateLimiter(client *redis.Client, window time.Duration, maxAttempts int64) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		prefix:      "worklog:ratelimit:",
		window:      window,
		maxAttempts: maxAttempts,
	}
}

func (rl *RedisRateLimiter) WithLimit(maxAttempts int64, window time.Duration) RateLimiter {
	return &RedisRateLimiter{
		client:      rl.client,
		prefix:      fmt.Sprintf("%s%d:", rl.prefix, maxAttempts),
		window:      window,
		maxAttempts: maxAttempts,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := rl.prefix + key
	windowStart := time.Now().Truncate(rl.window)
	resetTime := windowStart.Add(rl.window)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, resetTime)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limiter error: %w", err)
	}

	count := incr.Val()
	return count <= rl.maxAttempts, remaining(rl.maxAttempts, count), resetTime, nil
}

func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.prefix+key).Err()
}

// MemoryRateLimiter keeps counters in process. It backs tests and single-node runs without Redis.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	counters    map[string]*windowCounter
	window      time.Duration
	maxAttempts int64
	now         func() time.Time
}

type windowCounter struct {
	start time.Time
	count int64
}

func NewMemoryRateLimiter(window time.Duration, maxAttempts int64) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		counters:    make(map[string]*windowCounter),
		window:      window,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (rl *MemoryRateLimiter) WithLimit(maxAttempts int64, window time.Duration) RateLimiter {
	return NewMemoryRateLimiter(window, maxAttempts)
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Truncate(rl.window)
	counter, ok := rl.counters[key]
	if !ok || !counter.start.Equal(windowStart) {
		counter = &windowCounter{start: windowStart}
		rl.counters[key] = counter
	}
	counter.count++

	return counter.count <= rl.maxAttempts, remaining(rl.maxAttempts, counter.count), windowStart.Add(rl.window), nil
}

func (rl *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.counters, key)
	return nil
}

func remaining(max, count int64) int {
	if count >= max {
		return 0
	}
	return int(max - count)
}
