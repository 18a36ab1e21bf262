// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Metrics exports per-route RED metrics (rate, errors, duration) plus body
// sizes. The route label is the registered Gin pattern, for example
// /api/v1/personas/:id/messages; requests that matched nothing share the
// single label "unmatched" so scanners cannot blow up label cardinality.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "echo"
	unmatchedRoute   = "unmatched"
)

// sizeBuckets span small JSON bodies up to the largest reference uploads.
var sizeBuckets = prometheus.ExponentialBucketsRange(256, 64<<20, 12)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency. Synthesis and uploads wait on the voice provider.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method", "route"})

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	})

	httpResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "Bytes written in HTTP response bodies.",
		Buckets:   sizeBuckets,
	}, []string{"method", "route"})

	httpRequestBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_size_bytes",
		Help:      "Declared Content-Length of HTTP request bodies.",
		Buckets:   sizeBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInFlight, httpResponseBytes, httpRequestBytes)
}

// routeLabel is the registered pattern for c, or unmatchedRoute.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}

// Metrics records every request that passes through it. Mount the exporter
// separately, e.g. r.GET("/metrics", gin.WrapH(promhttp.Handler())).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		httpInFlight.Dec()
		method, route := c.Request.Method, routeLabel(c)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			httpResponseBytes.WithLabelValues(method, route).Observe(float64(n))
		}
		if c.Request.ContentLength > 0 {
			httpRequestBytes.WithLabelValues(method, route).Observe(float64(c.Request.ContentLength))
		}
	}
}
