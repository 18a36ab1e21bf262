// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a Redis-backed fixed-window limiter used to protect
// the paid voice-provider routes (synthesis and reference upload) across all
// replicas. Each (key, window) pair maps to one Redis counter that expires
// with its window.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisWindowLimiter allows at most limit requests per key per window.
type RedisWindowLimiter struct {
	client  redis.Cmdable
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewRedisWindowLimiter builds a limiter over an existing client. The prefix
// namespaces keys; an empty prefix uses "echo:ratelimit".
func NewRedisWindowLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) (*RedisWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "echo:ratelimit"
	}
	return &RedisWindowLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		timeout: 2 * time.Second,
		now:     time.Now,
	}, nil
}

// Allow implements Limiter. Redis failures are returned to the caller.
func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	n, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return n <= int64(l.limit), nil
}

// RetryAfter is the time left in the current window.
func (l *RedisWindowLimiter) RetryAfter() time.Duration {
	windowMs := l.window.Milliseconds()
	elapsed := l.now().UTC().UnixMilli() % windowMs
	return time.Duration(windowMs-elapsed) * time.Millisecond
}

// KeyWithPrefix namespaces the keys produced by next, so one client can hold
// separate budgets per route family (e.g. "provider:ip:203.0.113.7").
func KeyWithPrefix(prefix string, next keyFunc) keyFunc {
	return func(c *gin.Context) string {
		return prefix + ":" + next(c)
	}
}
