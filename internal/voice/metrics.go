package voice

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "echo",
			Name:      "voice_provider_requests_total",
			Help:      "Total number of calls to the voice provider by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	providerLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "echo",
			Name:      "voice_provider_request_duration_seconds",
			Help:      "Duration of voice provider calls in seconds.",
			// Uploads and synthesis run for seconds, not milliseconds.
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(providerReqs, providerLat)
}

// Instrumented decorates a Provider with Prometheus metrics.
type Instrumented struct {
	Next Provider
}

// Synthesize implements Provider.
func (p Instrumented) Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := p.Next.Synthesize(ctx, req)
	observe("synthesize", start, err)
	return rc, err
}

// UploadReference implements Provider.
func (p Instrumented) UploadReference(ctx context.Context, up ReferenceUpload) (string, error) {
	start := time.Now()
	id, err := p.Next.UploadReference(ctx, up)
	observe("upload", start, err)
	return id, err
}

func observe(op string, start time.Time, err error) {
	providerLat.WithLabelValues(op).Observe(time.Since(start).Seconds())
	providerReqs.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotConfigured):
		return "disabled"
	case errors.As(err, &pe):
		return "provider_error"
	default:
		return "error"
	}
}
