// Package observability sets up OpenTelemetry tracing for the Echo backend.
//
// Spans come from three places: otelgin at the HTTP edge (see RequestFilter),
// the GORM tracing plugin in the record store, and the persona and speech
// services. Every span carries a resource describing the deployment: the
// record-store driver, the audio store and whether a voice provider is
// configured.
package observability

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/echo-voice-backend/internal/config"
)

const serviceNamespace = "echo"

// Resource attribute keys describing the deployment.
const (
	attrDBDriver      = attribute.Key("echo.db.driver")
	attrAudioStore    = attribute.Key("echo.audio.store")
	attrVoiceProvider = attribute.Key("echo.voice.provider")
)

// Deployment names the backends this process talks to.
type Deployment struct {
	DBDriver      string // sqlite | postgres
	AudioStore    string // local | minio
	VoiceProvider string // fish-audio | disabled
}

// DeploymentOf derives the Deployment from the loaded configuration.
func DeploymentOf(cfg config.Config) Deployment {
	provider := "fish-audio"
	if cfg.FishAudio.APIKey == "" {
		provider = "disabled"
	}
	return Deployment{
		DBDriver:      cfg.DBDriver,
		AudioStore:    cfg.Audio.Store,
		VoiceProvider: provider,
	}
}

func (d Deployment) attributes() []attribute.KeyValue {
	var kv []attribute.KeyValue
	if d.DBDriver != "" {
		kv = append(kv, attrDBDriver.String(d.DBDriver))
	}
	if d.AudioStore != "" {
		kv = append(kv, attrAudioStore.String(d.AudioStore))
	}
	if d.VoiceProvider != "" {
		kv = append(kv, attrVoiceProvider.String(d.VoiceProvider))
	}
	return kv
}

// Test seams.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, serviceName, version string, dep Deployment) (*resource.Resource, error) {
		attrs := append([]attribute.KeyValue{
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace(serviceNamespace),
			semconv.ServiceVersion(version),
		}, dep.attributes()...)
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// sampler maps the configured ratio onto a parent-based sampler. The
// extremes use the fixed samplers so 0 and 1 are exact.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// exporterOptions builds the OTLP gRPC client options. Batches are gzip
// compressed; TLS uses the system roots unless the collector is insecure.
func exporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithCompressor("gzip"),
	}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// SetupOTel installs the global tracer provider and W3C propagators and
// returns a shutdown function that flushes pending spans. When tracing is
// disabled the globals are left alone and shutdown is a no-op. On error the
// globals are untouched.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string, dep Deployment) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(exporterOptions(cfg)...))
	if err != nil {
		return nil, err
	}
	res, err := newServiceResourceFn(ctx, cfg.ServiceName, version, dep)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// untracedPaths are the probe and scrape endpoints.
var untracedPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// RequestFilter reports whether otelgin should open a server span for r.
// Probes, metric scrapes, API docs and downloads of stored audio under
// audioPrefix are skipped. An empty audioPrefix traces every audio path.
func RequestFilter(audioPrefix string) func(*http.Request) bool {
	audioPrefix = strings.TrimSuffix(audioPrefix, "/")
	return func(r *http.Request) bool {
		p := r.URL.Path
		switch {
		case untracedPaths[p]:
			return false
		case strings.HasPrefix(p, "/swagger/"):
			return false
		case audioPrefix != "" && (p == audioPrefix || strings.HasPrefix(p, audioPrefix+"/")):
			return false
		}
		return true
	}
}
