// Package ratelimit provides a fixed-window request limiter backed by
// Redis, with an in-memory fallback when Redis is unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const keyPrefix = "baitline:rl:"

// RedisLimiter counts requests per key per window in Redis, so the limit
// holds across replicas sharing the same instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter over an existing client.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments the key's window counter and compares it to the
// limit. Errors are returned so the caller can decide to fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("%s%s:%d", keyPrefix, key, time.Now().UnixNano()/int64(l.window))

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return count.Val() <= int64(l.limit), nil
}

// MemoryLimiter is the process-local fallback. Counters reset when their
// window rolls over; stale buckets are dropped on the way through.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]*windowCount
	limit  int
	window time.Duration
}

type windowCount struct {
	windowStart time.Time
	n           int
}

// NewMemoryLimiter creates a process-local limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: window,
	}
}

// Allow never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.counts[key]
	if !ok || now.Sub(wc.windowStart) >= l.window {
		l.counts[key] = &windowCount{windowStart: now, n: 1}
		return true, nil
	}
	wc.n++
	return wc.n <= l.limit, nil
}

// New picks the Redis limiter when the address answers a ping, otherwise
// the in-memory fallback. An empty address skips Redis outright.
func New(addr, password string, limit int, window time.Duration) Limiter {
	if addr == "" {
		return NewMemoryLimiter(limit, window)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] redis %s unreachable (%v), using in-memory rate limiter", addr, err)
		_ = client.Close()
		return NewMemoryLimiter(limit, window)
	}
	return NewRedisLimiter(client, limit, window)
}
