package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/report"
	"fintrack/internal/snapshot"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting snapshot-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}
	store := result.Backend

	// Event-driven refresh needs a broker; without one the worker falls
	// back to the cron schedule only.
	var consumer *events.Client
	if cfg.AMQPURL != "" {
		consumer, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, running schedule-only", "error", err)
			consumer = nil
		} else {
			defer consumer.Close()
		}
	}

	engine := report.NewEngine(store, store, store)
	worker := snapshot.NewWorker(store, engine, cfg.SnapshotMonths, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Refresh everything once at startup so fresh deployments have
	// snapshots before the first scheduled run.
	startupCtx, startupCancel := context.WithTimeout(ctx, 5*time.Minute)
	if err := worker.RefreshAll(startupCtx); err != nil {
		logger.Error("Startup snapshot refresh failed", "error", err)
	}
	startupCancel()

	if err := worker.Start(ctx, cfg.SnapshotSchedule); err != nil {
		logger.Error("Failed to start snapshot worker", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	worker.Stop()
	logger.Info("Snapshot worker stopped gracefully")
}
