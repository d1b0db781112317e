package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-db-pipeline/internal/adapter/postgres"
	"github.com/couchcryptid/weather-db-pipeline/internal/config"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := postgres.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.CreateSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	logger.Info("schema ready")
}
