// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the mapping from
// service errors onto HTTP responses (via the `fail()` helper in this package).
// These codes give clients a stable, machine-readable error taxonomy that
// supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain codes (e.g., invalid_role, provider_error) name failures that the
//     status alone cannot convey.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "provider_error",
//	  "message": "reference audio too short"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/echo-voice-backend/internal/audiostore"
	"github.com/tbourn/echo-voice-backend/internal/services"
	"github.com/tbourn/echo-voice-backend/internal/voice"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeTimeout          = "timeout"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeCanceled         = "canceled"

	// Domain-specific:
	ErrCodeInvalidReference    = "invalid_reference"
	ErrCodeInvalidRole         = "invalid_role"
	ErrCodeInvalidFileKind     = "invalid_file_kind"
	ErrCodeProviderError       = "provider_error"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
)

// statusClientClosedRequest is the non-standard status used when the caller
// went away before the work finished.
const statusClientClosedRequest = 499

// failErr maps a service error onto a status and code and aborts the request.
// Provider failures carry the provider's own message.
func failErr(c *gin.Context, err error) {
	var pe *voice.ProviderError
	switch {
	case errors.Is(err, services.ErrInvalidRole):
		fail(c, http.StatusBadRequest, ErrCodeInvalidRole, err.Error())
	case errors.Is(err, services.ErrInvalidFileKind):
		fail(c, http.StatusBadRequest, ErrCodeInvalidFileKind, err.Error())
	case errors.Is(err, services.ErrInvalidReference):
		fail(c, http.StatusBadRequest, ErrCodeInvalidReference, "referenced user or persona does not exist")
	case errors.Is(err, services.ErrMissingField),
		errors.Is(err, services.ErrEmptyText),
		errors.Is(err, services.ErrTooLong),
		errors.Is(err, services.ErrInvalidFormat),
		errors.Is(err, audiostore.ErrInvalidKey):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, audiostore.ErrObjectTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err.Error())
	case errors.Is(err, services.ErrDuplicateVoiceModel):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable, retry later")
	case errors.Is(err, voice.ErrNotConfigured):
		fail(c, http.StatusServiceUnavailable, ErrCodeProviderUnavailable, err.Error())
	case errors.Is(err, services.ErrTimeout),
		errors.Is(err, voice.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "operation timed out")
	case errors.Is(err, context.Canceled):
		fail(c, statusClientClosedRequest, ErrCodeCanceled, "request canceled")
	case errors.As(err, &pe):
		fail(c, http.StatusBadGateway, ErrCodeProviderError, pe.Message)
	default:
		failInternal(c, err)
	}
}
