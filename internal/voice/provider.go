// Package voice is the boundary to the external voice-cloning provider. It
// defines the narrow Provider contract the rest of the backend depends on,
// the typed errors callers inspect, and implementations: an HTTP client for
// the Fish Audio API, a Disabled stand-in used when no credentials are
// configured, and a Prometheus-instrumented decorator.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SynthesisRequest describes one text-to-speech call. ReferenceID and VoiceID
// are optional and passed through to the provider when set.
type SynthesisRequest struct {
	Text        string
	ReferenceID string
	VoiceID     string
	Format      string
}

// ReferenceUpload is reference material sent to the provider for cloning.
type ReferenceUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Name        string
}

// Provider synthesizes speech and clones voices from reference material.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize returns the generated audio stream. The caller closes it.
	Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error)
	// UploadReference returns the provider's id for the new voice model.
	UploadReference(ctx context.Context, up ReferenceUpload) (string, error)
}

var (
	// ErrTimeout is returned when the provider does not answer in time.
	ErrTimeout = errors.New("voice provider timeout")
	// ErrNotConfigured is returned by Disabled.
	ErrNotConfigured = errors.New("voice provider not configured")
)

// ProviderError is a non-success answer from the provider. Message carries
// the provider's own text and is surfaced verbatim.
type ProviderError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("voice provider %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("voice provider %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Disabled is a Provider that rejects every call with ErrNotConfigured.
type Disabled struct{}

// Synthesize implements Provider.
func (Disabled) Synthesize(context.Context, SynthesisRequest) (io.ReadCloser, error) {
	return nil, ErrNotConfigured
}

// UploadReference implements Provider.
func (Disabled) UploadReference(context.Context, ReferenceUpload) (string, error) {
	return "", ErrNotConfigured
}
