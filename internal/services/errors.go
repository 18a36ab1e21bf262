// Package services defines the business logic for users, personas,
// conversation history, voice models and speech synthesis. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Not-found is not an error here: lookups report absence
// through a boolean.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/echo-voice-backend/internal/repo"
)

// Validation errors. These are detected before any side effect.
var (
	// ErrMissingField is returned when a required input is blank.
	ErrMissingField = errors.New("required field is missing")

	// ErrInvalidReference is returned when a supplied id does not resolve
	// to an existing user or persona.
	ErrInvalidReference = errors.New("referenced record does not exist")

	// ErrInvalidRole is returned when a message role is not user or assistant.
	ErrInvalidRole = errors.New("role must be user or assistant")

	// ErrInvalidFileKind is returned when a file kind is not audio or video.
	ErrInvalidFileKind = errors.New("file kind must be audio or video")

	// ErrDuplicateVoiceModel is returned when the provider model id is
	// already recorded.
	ErrDuplicateVoiceModel = errors.New("voice model already exists")

	// ErrEmptyText is returned when a synthesis request has no text.
	ErrEmptyText = errors.New("text is empty")

	// ErrTooLong is returned when text or a name exceeds its configured limit.
	ErrTooLong = errors.New("input too long")

	// ErrInvalidFormat is returned for audio formats the provider does not produce.
	ErrInvalidFormat = errors.New("unsupported audio format")
)

// Infrastructure errors. These are retryable by the caller.
var (
	// ErrStoreUnavailable is returned when the record store cannot be reached.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrTimeout is returned when a store call exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// storeErr maps repository errors onto the service taxonomy, keeping the
// original in the chain.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	case errors.Is(err, repo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, repo.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
