// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Provider-backed routes carry their own, stricter rate limit
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/echo-voice-backend/internal/config"
	"github.com/tbourn/echo-voice-backend/internal/http/handlers"
	"github.com/tbourn/echo-voice-backend/internal/http/middleware"
	"github.com/tbourn/echo-voice-backend/internal/observability"
	"github.com/tbourn/echo-voice-backend/internal/repo"
	"github.com/tbourn/echo-voice-backend/internal/services"
	"github.com/tbourn/echo-voice-backend/internal/voice"
)

// Paths that carry provider traffic or large bodies.
const (
	uploadPath     = "/voice-models/upload"
	synthesizePath = "/synthesize"
	readyTimeout   = 2 * time.Second
)

// Dependencies are the collaborators built by the entry point.
type Dependencies struct {
	// DB is the migrated record store handle.
	DB *gorm.DB
	// Provider is the voice provider; nil means voice.Disabled.
	Provider voice.Provider
	// Audio receives synthesized audio.
	Audio services.AudioStore
	// Redis, when set, backs the provider-route rate limiter.
	Redis redis.Cmdable
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health, readiness and metrics
// endpoints, and then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (per route)
//  6. Metrics
//  7. Gzip (audio files excluded)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName,
		otelgin.WithFilter(observability.RequestFilter(cfg.Audio.URLPrefix)),
	))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits; reference uploads get a larger cap
	r.Use(limitBodyByRoute(cfg.MaxBodyBytes, map[string]int64{
		joinPath(cfg.APIBasePath, uploadPath): cfg.UploadMaxBytes,
	}))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression for JSON responses; audio is already compressed
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		cfg.Audio.URLPrefix, "/metrics",
	})))

	// 8) Idempotency validation (before rate limiting)
	idem := repo.IdempotencyKeys{DB: db, TTL: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idem.Exists,
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-API-Key", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// API responses stay out of shared caches; ETags still revalidate.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		CacheControl:   "private, no-cache",
		PublicPrefixes: []string{cfg.Audio.URLPrefix, "/swagger"},
		EnablePolicy:   true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/readiness
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", func(c *gin.Context) {
		if err := repo.Ping(c.Request.Context(), db, readyTimeout); err != nil {
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeStoreUnavailable, "store unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Audio.Store == "local" && cfg.Audio.Dir != "" {
		r.Static(cfg.Audio.URLPrefix, cfg.Audio.Dir)
	}

	// Dependency injection: services ← repo/db/provider/audio
	personaSvc := services.NewPersonaService(db, repo.Records{})
	if cfg.StoreTimeout > 0 {
		personaSvc.StoreTimeout = cfg.StoreTimeout
	}
	provider := deps.Provider
	if provider == nil {
		provider = voice.Disabled{}
	}
	speechSvc := services.NewSpeechService(provider, deps.Audio, personaSvc)
	if cfg.DefaultAudioFormat != "" {
		speechSvc.DefaultFormat = cfg.DefaultAudioFormat
	}
	h := handlers.NewFromPersonaService(personaSvc, speechSvc, idem)

	providerLimit := providerLimiter(deps.Redis, cfg.ProviderRatePerMinute)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Users
		api.POST("/users", h.CreateUser)
		api.GET("/users/:externalId", h.GetUser)
		api.GET("/users/:externalId/persona", h.GetCurrentPersona)
		api.GET("/users/:externalId/personas", h.ListUserPersonas)
		api.GET("/users/:externalId/voice-models", h.ListUserVoiceModels)

		// Personas
		api.POST("/personas", h.CreatePersona)
		api.GET("/personas/:id", h.GetPersona)
		api.GET("/personas/:id/voice-model", h.GetPersonaVoiceModel)

		// Messages
		api.POST("/personas/:id/messages", h.PostMessage)
		api.GET("/personas/:id/messages", h.ListMessages)

		// Voice models
		api.POST(uploadPath, append(providerLimit, h.UploadReference)...)
		api.GET("/voice-models/:modelId", h.GetVoiceModel)
		api.DELETE("/voice-models/:modelId", h.DeleteVoiceModel)
		api.PUT("/voice-models/:modelId/persona", h.LinkVoiceModel)

		// Speech
		api.POST(synthesizePath, append(providerLimit, h.Synthesize)...)
	}
}

// providerLimiter returns the middleware guarding provider-backed routes.
// A shared Redis window is used when a client is configured so the budget
// holds across replicas; otherwise a process-local token bucket applies.
// perMinute <= 0 disables the limit.
func providerLimiter(client redis.Cmdable, perMinute int) []gin.HandlerFunc {
	if perMinute <= 0 {
		return nil
	}
	keyFn := middleware.KeyWithPrefix("provider", middleware.KeyByUserOrIP())
	if client != nil {
		l, err := middleware.NewRedisWindowLimiter(client, "echo:ratelimit", perMinute, time.Minute)
		if err == nil {
			return []gin.HandlerFunc{middleware.Limit(l, keyFn)}
		}
		log.Warn().Err(err).Msg("redis provider limiter unavailable; using in-process limiter")
	}
	local := middleware.NewRateLimiter(float64(perMinute)/60, perMinute, keyFn)
	return []gin.HandlerFunc{middleware.Limit(local, keyFn)}
}

// limitBodyByRoute caps request bodies with http.MaxBytesReader. Routes named
// in overrides (by their full registered path) get their own cap; all other
// requests get def. Requests exceeding the cap cause downstream reads to error.
func limitBodyByRoute(def int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := def
		if n, ok := overrides[c.FullPath()]; ok {
			limit = n
		}
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// joinPath joins a normalized base path and a route path.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return strings.TrimRight(base, "/") + p
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
