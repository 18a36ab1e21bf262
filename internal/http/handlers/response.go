// Package handlers provides HTTP handler implementations for the public API.
//
// Every failure leaves the API as an ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{"request_id":"0190f1c2-7a1b-7c3d-9e8f-0123456789ab","code":"not_found","message":"persona not found"}
//
// Success bodies are the resource itself (or a small wrapper such as
// ListMessagesResponse), never an envelope.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/http/middleware"
)

// ErrorResponse is the error body shared by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client error with server logs.
	RequestID string `json:"request_id,omitempty" example:"0190f1c2-7a1b-7c3d-9e8f-0123456789ab"`
	// Stable machine-readable code, one of the ErrCode constants.
	Code string `json:"code" example:"not_found"`
	// Message is safe to show to end users.
	Message string `json:"message" example:"persona not found"`
}

// fail writes an ErrorResponse and aborts the chain. Server-side failures are
// logged on the request logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().Int("status", status).Str("code", code).Str("message", msg).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failInternal reports an unexpected error as a generic 500. The cause is
// attached to the gin context for the access log and never sent to clients.
func failInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

// Fail lets the router answer with the same envelope (NoRoute, readiness).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// weakETag identifies a collection state by its size and newest timestamp.
func weakETag(kind, scope string, count int64, latest *time.Time) string {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, scope, count, ts)
}

// notModified sets the ETag header and answers 304 when the client already
// holds that version.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
