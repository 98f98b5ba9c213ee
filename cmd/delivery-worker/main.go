package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seojun/letterpress/internal/config"
	"github.com/seojun/letterpress/internal/delivery"
	"github.com/seojun/letterpress/internal/idempotency"
	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/mailer"
	"github.com/seojun/letterpress/internal/storage"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromOptions(logger.Options{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting delivery worker")

	// Initialize database connection pool.
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

	queries := storage.New(db.Pool)

	// Initialize mail client.
	mail, err := mailer.NewClient(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mail client")
	}
	log.Info().Str("provider", mail.Name()).Msg("mail client initialized")

	// Build worker pool configuration.
	workerCount := cfg.Delivery.Workers
	if workerCount <= 0 {
		workerCount = 4
	}

	poolCfg := delivery.Config{
		WorkerCount:     workerCount,
		PollInterval:    cfg.Delivery.PollInterval,
		ProcessTimeout:  cfg.Delivery.ProcessTimeout,
		ShutdownTimeout: cfg.Delivery.ShutdownTimeout,
	}

	retryStrategy := delivery.NewRetryStrategy(cfg.Delivery.MaxRetries)

	pool := delivery.NewWorkerPool(queries, mail, retryStrategy, poolCfg, log)
	pool.Start(ctx)
	log.Info().
		Int("workers", workerCount).
		Int("max_retries", cfg.Delivery.MaxRetries).
		Msg("delivery worker pool started")

	// The reaper returns tasks abandoned by crashed workers to the queue.
	reaperCtx, stopReaper := context.WithCancel(ctx)
	reaper := delivery.NewReaper(queries, cfg.Delivery.ReaperInterval, cfg.Delivery.LivenessTimeout, log)
	go reaper.Run(reaperCtx)

	// Idempotency records only need to outlive client retry windows;
	// purge old ones on a slow cadence.
	store := idempotency.NewStore(db)
	go func() {
		ticker := time.NewTicker(cfg.Delivery.IdempotencyTTL / 4)
		defer ticker.Stop()
		for {
			select {
			case <-reaperCtx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-cfg.Delivery.IdempotencyTTL)
				n, err := store.DeleteRecordsBefore(reaperCtx, cutoff)
				if err != nil {
					log.Error().Err(err).Msg("idempotency cleanup failed")
					continue
				}
				if n > 0 {
					log.Info().Int64("deleted", n).Msg("purged expired idempotency records")
				}
			}
		}
	}()

	// Wait for interrupt signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down delivery worker")
	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Delivery.ShutdownTimeout)
	defer cancel()

	pool.Stop(shutdownCtx)

	log.Info().Msg("delivery worker stopped")
}
