// Command server runs the watch collection API.
//
// Startup order: .env → config → logging → database (migrate + seed) →
// image store → tracing → HTTP server. Shutdown drains in-flight triage
// writes before closing the listener's grace window ends.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	_ "github.com/watchdex/go-watch-backend/docs"
	"github.com/watchdex/go-watch-backend/internal/config"
	httpapi "github.com/watchdex/go-watch-backend/internal/http"
	"github.com/watchdex/go-watch-backend/internal/observability"
	"github.com/watchdex/go-watch-backend/internal/repo"
	"github.com/watchdex/go-watch-backend/internal/storage"
	"github.com/watchdex/go-watch-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; absent files are not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	// Database
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}
	if err := repo.SeedCatalog(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Fatal().Err(err).Msg("init db tracing")
		}
	}

	// Image storage
	images, err := storage.NewImageStore(cfg.Upload.Path, cfg.Upload.PublicURL, cfg.Upload.MaxDim, cfg.Upload.JPEGQual)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Upload.Path).Msg("init image store")
	}

	// Tracing
	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	// Router
	r := gin.New()
	triage := httpapi.RegisterRoutes(r, db, images, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("version", version).
			Str("addr", srv.Addr).
			Str("db", cfg.DBPath).
			Str("uploads", images.BasePath()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Accepted cards may still be writing in the background.
	triage.Drain()

	if err := shutdownOTel(ctx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}

	log.Info().Msg("server stopped")
}
