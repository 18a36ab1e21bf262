// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// IdempotencyValidator checks the Idempotency-Key header on message appends
// and, when a stored result already exists for (caller, persona, key), marks
// the request as a replay. The handler then answers from the stored record and
// the rate limiters let it through without charging the caller.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key for a retryable write.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdempotencyKeyMaxLen = 200
	anonymousCaller             = "anonymous"
)

var defaultIdempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s, _ := c.Value(ctxKeyIdemKey).(string)
	return s, s != ""
}

// IsReplay reports whether a stored result exists for this request's key.
func IsReplay(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyIdemReplay).(bool)
	return b
}

// IdempotencyOptions bounds which keys are accepted. Zero values select a
// 200 byte limit and the token alphabet [A-Za-z0-9._~:-].
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether an unexpired record exists for
// (callerID, scopeID, key) as of now. scopeID is the route's :id parameter.
// Expiry is the lookup's concern.
type IdempotencyLookup func(ctx context.Context, callerID, scopeID, key string, now time.Time) (bool, error)

// IdempotencyValidator rejects malformed keys with 400 bad_idempotency_key and
// flags replays found by lookup. Requests without the header pass untouched.
// A failing lookup is logged and treated as a miss, so the write proceeds.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdempotencyKeyMaxLen
	}
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultIdempotencyKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			found, err := lookup(c.Request.Context(), callerFromCtx(c), c.Param("id"), key, time.Now().UTC())
			switch {
			case err != nil:
				lg := LoggerFrom(c)
				lg.Warn().Err(err).Msg("idempotency lookup failed; treating as new request")
			case found:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// callerFromCtx names the client an idempotency record belongs to: the
// authenticated "userID", then X-User-ID, then "anonymous". Handlers resolve
// the caller the same way.
func callerFromCtx(c *gin.Context) string {
	if s, _ := c.Value("userID").(string); s != "" {
		return s
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h
	}
	return anonymousCaller
}
