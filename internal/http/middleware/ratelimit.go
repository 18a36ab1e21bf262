// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the rate-limiting contract and its process-local
// implementation. RateLimiter keeps one token bucket per caller key
// (golang.org/x/time/rate) and sweeps idle buckets on a timer driven by
// lookups, so memory stays bounded without a background goroutine.
//
// A single process enforces its own budget only. Deployments with several
// replicas configure REDIS_ADDR so the provider routes use RedisWindowLimiter
// instead.
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key fits in its budget.
// An error means the decision could not be made; callers deny the request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// retryHinter is implemented by limiters that can tell a denied caller how
// long to wait before the budget refills.
type retryHinter interface {
	RetryAfter() time.Duration
}

// keyFunc maps a request to the identity its budget is charged to.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP charges authenticated callers by user id ("user:<id>", read
// from the "userID" context value) and everyone else by client IP
// ("ip:<addr>"). The X-User-ID header is deliberately not trusted here.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

const (
	defaultBucketIdleTTL = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. It is safe for concurrent use.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int
	keyFn     keyFunc

	mu         sync.Mutex
	buckets    map[string]*bucket
	idleTTL    time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// NewRateLimiter refills perSecond tokens per second into buckets holding at
// most burst tokens. burst values below 1 are raised to 1.
func NewRateLimiter(perSecond float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		perSecond:  rate.Limit(perSecond),
		burst:      burst,
		keyFn:      keyFn,
		buckets:    make(map[string]*bucket),
		idleTTL:    defaultBucketIdleTTL,
		sweepEvery: defaultSweepInterval,
		lastSweep:  time.Now(),
		now:        time.Now,
	}
}

// bucketFor returns the bucket for key, creating it on first use. Idle
// buckets are swept first so a stale entry is replaced rather than revived.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.tokens
}

// size reports the number of live buckets.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Allow implements Limiter. It never fails.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.bucketFor(key).AllowN(rl.now(), 1), nil
}

// RetryAfter is the time one token takes to refill.
func (rl *RateLimiter) RetryAfter() time.Duration {
	if rl.perSecond <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Second) / float64(rl.perSecond))
}

// Handler limits requests using the limiter's own key function.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return Limit(rl, rl.keyFn)
}

// IsRateBypass reports whether IdempotencyValidator found a stored result for
// this request. Replays are served without spending budget.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Limit charges every request to keyFn(c) on l. Denied requests, and requests
// for which l returned an error, get 429 with Retry-After and the standard
// error body ({request_id, code: "too_many_requests", message}).
func Limit(l Limiter, keyFn keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := keyFn(c)
		allowed, err := l.Allow(c.Request.Context(), key)
		if err == nil && allowed {
			c.Next()
			return
		}
		lg := LoggerFrom(c)
		if err != nil {
			lg.Warn().Err(err).Msg("rate limiter unavailable; denying request")
		} else {
			lg.Debug().Str("limit_key", key).Msg("rate limit exceeded")
		}

		c.Header("Retry-After", retryAfterSeconds(l))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfterSeconds renders the limiter's hint as whole seconds, at least 1.
func retryAfterSeconds(l Limiter) string {
	secs := 1
	if h, ok := l.(retryHinter); ok {
		if d := int(math.Ceil(h.RetryAfter().Seconds())); d > secs {
			secs = d
		}
	}
	return strconv.Itoa(secs)
}
