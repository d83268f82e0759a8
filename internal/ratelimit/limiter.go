// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"production-tracker/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the time until the current window resets.
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Refund takes back one hit for key in its current window.
	Refund(ctx context.Context, key string) error
}

func decide(limit int, count int64, resetIn time.Duration) Decision {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  int(remaining),
		RetryAfter: resetIn,
	}
}

// RedisLimiter shares counters across replicas.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetIn, err := utils.IncrementWindow(ctx, l.rdb, l.prefix+":"+key, l.window)
	if err != nil {
		return Decision{}, err
	}
	return decide(l.limit, count, resetIn), nil
}

func (l *RedisLimiter) Refund(ctx context.Context, key string) error {
	_, err := utils.RefundWindow(ctx, l.rdb, l.prefix+":"+key)
	return err
}

// MemoryLimiter keeps counters in process. Only correct for a single replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	window  time.Duration
	clock   func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  windowSize,
		clock:   time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.sweep(now)
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return decide(l.limit, w.count, w.resetAt.Sub(now)), nil
}

func (l *MemoryLimiter) Refund(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if ok && l.clock().Before(w.resetAt) && w.count > 0 {
		w.count--
	}
	return nil
}

// sweep drops finished windows so idle keys do not accumulate.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
