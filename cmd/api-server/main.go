package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seojun/letterpress/internal/api"
	"github.com/seojun/letterpress/internal/auth"
	"github.com/seojun/letterpress/internal/config"
	"github.com/seojun/letterpress/internal/idempotency"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/publish"
	"github.com/seojun/letterpress/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromOptions(logger.Options{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting API server")

	// Connect to database
	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, storage.PoolConfig{
		MinConns:          cfg.Database.PoolMin,
		MaxConns:          cfg.Database.PoolMax,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		ConnectTimeout:    cfg.Database.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	queries := storage.New(db.Pool)

	// Initialize mail client
	mail, err := mailer.NewClient(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mail client")
	}
	log.Info().Str("provider", mail.Name()).Msg("mail client initialized")

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.Auth)

	if cfg.Auth.SigningKey == "" || cfg.Auth.SigningKey == "change-me-in-production-use-a-strong-secret" {
		log.Warn().Msg("JWT signing key is not set or using default value; set LETTERPRESS_AUTH_SIGNING_KEY in production")
	}

	// Publish service: idempotency-protected issue submission
	store := idempotency.NewStore(db)
	publisher := publish.NewService(store)

	router := api.NewRouter(cfg, db, queries, publisher, mail, jwtService, log)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	// Graceful shutdown with 30-second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
