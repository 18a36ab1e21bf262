// Message HTTP handlers.
//
// This file exposes REST endpoints for a persona's conversation:
//   - POST /personas/{id}/messages   (append one message)
//   - GET  /personas/{id}/messages   (last N messages, oldest first)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (line endings and length constraints)
//   - delegate to the conversation service
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// append exists for (caller, persona, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/domain"
	"github.com/tbourn/echo-voice-backend/internal/http/middleware"
	"github.com/tbourn/echo-voice-backend/internal/utils"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for appending a message.
//
// Content is sanitized before it is stored: surrounding whitespace is trimmed,
// line endings become LF and runs of blank lines collapse to one. The stored
// (and returned) content may therefore differ from what was posted. The
// service layer enforces the maximum rune count.
type PostMessageRequest struct {
	// Role is "user" or "assistant".
	Role string `json:"role" binding:"required" example:"user" enums:"user,assistant"`
	// Content is the utterance. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Tell me about your day."`
}

// ListMessagesResponse contains the requested slice of conversation history.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

//
// Helpers
//

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 200
)

// clampLimit parses the limit query parameter. Missing or malformed values
// use the default; values above the cap are clamped. Zero and negative
// values are passed through and yield an empty history.
func clampLimit(c *gin.Context) int {
	return utils.LimitParam(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit)
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// idempotencyKey prefers the key validated by middleware and falls back to
// the raw header when no validator is installed.
func idempotencyKey(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Append a message to a persona's conversation
// @Description Appends one message. Content is trimmed and line endings and blank-line runs are normalized before storage, so the returned content may differ from the request. Supports idempotency via the Idempotency-Key header (same key, same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Persona ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     201  {object}  domain.Message  "Stored message"
// @Success     200  {object}  domain.Message  "Replayed message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request, invalid role or unknown persona"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /personas/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	personaID, valid := personaIDParam(c)
	if !valid {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role and content required")
		return
	}
	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	caller := callerID(c)
	key := idempotencyKey(c)

	// Replay path.
	if key != "" && h.idem != nil {
		if msgID, found, err := h.idem.Lookup(ctx, caller, personaID, key); err == nil && found {
			if prev, ok2, err2 := h.convo.GetMessage(ctx, personaID, msgID); err2 == nil && ok2 {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, prev)
				return
			}
		}
	}

	m, err := h.convo.AppendMessage(ctx, personaID, req.Role, content)
	if err != nil {
		failErr(c, err)
		return
	}

	// Store path (best effort).
	if key != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, caller, personaID, key, m.ID, http.StatusCreated); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Str("persona_id", personaID).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, m)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Conversation history
// @Description Returns the last `limit` messages of a persona, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       id             path    string  true  "Persona ID (UUID)"  format(uuid)
// @Param       limit          query   int     false "Number of messages"  maximum(200) default(10)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /personas/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	personaID, valid := personaIDParam(c)
	if !valid {
		return
	}
	limit := clampLimit(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.convo.HistoryStats(ctx, personaID); err == nil {
		if notModified(c, weakETag("messages", fmt.Sprintf("%s:%d", personaID, limit), count, latest)) {
			return
		}
	}

	items, err := h.convo.GetHistory(ctx, personaID, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items})
}
