// Command server runs the Echo voice backend HTTP API.
//
//	@title						Echo Voice Backend API
//	@version					1.0
//	@description				Users, Echo personas, conversation history and voice models, with text-to-speech and voice cloning through a third-party provider.
//	@BasePath					/api/v1
//	@schemes					http https
//	@produce					json
//	@securityDefinitions.apikey	UserID
//	@in							header
//	@name						X-User-ID
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/echo-voice-backend/docs"
	"github.com/tbourn/echo-voice-backend/internal/audiostore"
	"github.com/tbourn/echo-voice-backend/internal/config"
	httpapi "github.com/tbourn/echo-voice-backend/internal/http"
	"github.com/tbourn/echo-voice-backend/internal/observability"
	"github.com/tbourn/echo-voice-backend/internal/repo"
	"github.com/tbourn/echo-voice-backend/internal/services"
	"github.com/tbourn/echo-voice-backend/internal/sysutil"
	"github.com/tbourn/echo-voice-backend/internal/voice"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	version := sysutil.Version(os.Getenv("APP_VERSION"))

	zerolog.TimeFieldFormat = time.RFC3339Nano
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("service", cfg.OTEL.ServiceName).Str("version", version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.DeploymentOf(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open record store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate record store")
	}

	audio, err := openAudioStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Audio.Store).Msg("open audio store")
	}

	var provider voice.Provider = voice.Disabled{}
	if cfg.FishAudio.APIKey != "" {
		provider = voice.NewFishAudioClient(cfg.FishAudio.BaseURL, cfg.FishAudio.APIKey,
			cfg.FishAudio.SynthTimeout, cfg.FishAudio.UploadTimeout)
	} else {
		log.Warn().Msg("FISH_AUDIO_API_KEY not set; synthesis and voice uploads are disabled")
	}

	var rdb *redis.Client
	deps := httpapi.Dependencies{DB: db, Provider: voice.Instrumented{Next: provider}, Audio: audio}
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		deps.Redis = rdb
	}

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("db_driver", cfg.DBDriver).Str("audio_store", cfg.Audio.Store).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}

// openAudioStore builds the configured synthesized-audio store.
func openAudioStore(ctx context.Context, cfg config.Config) (services.AudioStore, error) {
	if cfg.Audio.Store == "minio" {
		return audiostore.NewMinioStore(ctx, audiostore.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
			URLTTL:    cfg.Audio.URLTTL,
		})
	}
	return audiostore.NewLocalStore(cfg.Audio.Dir, cfg.Audio.URLPrefix)
}
