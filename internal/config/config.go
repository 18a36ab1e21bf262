// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the record store, the voice provider, audio storage, rate limiting
// and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "echo-voice-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// FishAudioConfig configures the voice provider client.
type FishAudioConfig struct {
	APIKey        string        // FISH_AUDIO_API_KEY; empty disables synthesis and uploads
	BaseURL       string        // FISH_AUDIO_API_URL
	SynthTimeout  time.Duration // SYNTHESIS_TIMEOUT
	UploadTimeout time.Duration // UPLOAD_TIMEOUT
}

// AudioConfig selects where synthesized audio is written.
type AudioConfig struct {
	Store     string        // local|minio
	Dir       string        // AUDIO_DIR (local)
	URLPrefix string        // AUDIO_URL_PREFIX (local, served statically)
	URLTTL    time.Duration // AUDIO_URL_TTL (minio presigned URLs)
}

// MinioConfig holds MinIO/S3 connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// RedisConfig enables the shared provider rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // whole request incl. body; >= UPLOAD_TIMEOUT
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // >= UPLOAD_TIMEOUT
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // JSON request bodies
	UploadMaxBytes    int64         // multipart reference uploads
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Record store
	DBDriver     string        // sqlite|postgres
	DBPath       string        // SQLite path
	DatabaseURL  string        // Postgres DSN
	StoreTimeout time.Duration // bound on every store call

	// Voice
	FishAudio          FishAudioConfig
	DefaultAudioFormat string // wav|mp3|opus|pcm
	Audio              AudioConfig
	Minio              MinioConfig

	// Rate limiting
	RateRPS               float64 // tokens per second (>= 0)
	RateBurst             int     // bucket size (>= 1)
	ProviderRatePerMinute int     // provider-backed routes, per caller
	Redis                 RedisConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 150*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 150*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      getint64("MAX_BODY_BYTES", 1<<20),
		UploadMaxBytes:    getint64("UPLOAD_MAX_BYTES", 50<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Record store
		DBDriver:     strings.ToLower(strings.TrimSpace(getenv("DB_DRIVER", "sqlite"))),
		DBPath:       getenv("DB_PATH", "echo.db"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		StoreTimeout: getdur("STORE_TIMEOUT", 10*time.Second),

		// Voice
		FishAudio: FishAudioConfig{
			APIKey:        strings.TrimSpace(getenv("FISH_AUDIO_API_KEY", "")),
			BaseURL:       getenv("FISH_AUDIO_API_URL", "https://api.fish.audio/v1"),
			SynthTimeout:  getdur("SYNTHESIS_TIMEOUT", 30*time.Second),
			UploadTimeout: getdur("UPLOAD_TIMEOUT", 120*time.Second),
		},
		DefaultAudioFormat: strings.ToLower(getenv("DEFAULT_AUDIO_FORMAT", "wav")),
		Audio: AudioConfig{
			Store:     strings.ToLower(strings.TrimSpace(getenv("AUDIO_STORE", "local"))),
			Dir:       getenv("AUDIO_DIR", "audio"),
			URLPrefix: normalizeBasePath(getenv("AUDIO_URL_PREFIX", "/audio")),
			URLTTL:    getdur("AUDIO_URL_TTL", time.Hour),
		},
		Minio: MinioConfig{
			Endpoint:  getenv("MINIO_ENDPOINT", ""),
			AccessKey: getenv("MINIO_ACCESS_KEY", ""),
			SecretKey: getenv("MINIO_SECRET_KEY", ""),
			Bucket:    getenv("MINIO_BUCKET", "echo-audio"),
			Region:    getenv("MINIO_REGION", ""),
			UseSSL:    getbool("MINIO_USE_SSL", false),
		},

		// Rate limiting
		RateRPS:               getfloat("RATE_RPS", 5.0),
		RateBurst:             getint("RATE_BURST", 10),
		ProviderRatePerMinute: getint("PROVIDER_RATE_PER_MINUTE", 20),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "echo-voice-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 || cfg.UploadMaxBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES and UPLOAD_MAX_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.StoreTimeout <= 0 {
		return cfg, errors.New("STORE_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.FishAudio.BaseURL) == "" {
		return cfg, errors.New("FISH_AUDIO_API_URL must not be empty")
	}
	if cfg.FishAudio.SynthTimeout <= 0 || cfg.FishAudio.UploadTimeout <= 0 {
		return cfg, errors.New("SYNTHESIS_TIMEOUT and UPLOAD_TIMEOUT must be > 0")
	}
	// The server deadlines span the multipart read and the provider call of
	// a reference upload.
	if cfg.ReadTimeout < cfg.FishAudio.UploadTimeout || cfg.WriteTimeout < cfg.FishAudio.UploadTimeout {
		return cfg, errors.New("READ_TIMEOUT and WRITE_TIMEOUT must be >= UPLOAD_TIMEOUT")
	}
	switch cfg.DefaultAudioFormat {
	case "wav", "mp3", "opus", "pcm":
	default:
		return cfg, errors.New("DEFAULT_AUDIO_FORMAT must be one of: wav, mp3, opus, pcm")
	}
	switch cfg.Audio.Store {
	case "local":
		if strings.TrimSpace(cfg.Audio.Dir) == "" {
			return cfg, errors.New("AUDIO_DIR must not be empty")
		}
		if cfg.Audio.URLPrefix == "/" {
			return cfg, errors.New("AUDIO_URL_PREFIX must not be '/'")
		}
	case "minio":
		if cfg.Minio.Endpoint == "" || cfg.Minio.Bucket == "" {
			return cfg, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required when AUDIO_STORE=minio")
		}
	default:
		return cfg, errors.New("AUDIO_STORE must be one of: local, minio")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.ProviderRatePerMinute < 0 {
		return cfg, errors.New("PROVIDER_RATE_PER_MINUTE must be >= 0")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
