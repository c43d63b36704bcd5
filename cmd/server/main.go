package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/logging"
	"github.com/nfrund/parley/internal/server"
)

func main() {
	cfg := config.New()
	logger := logging.New(cfg.GetLogFormat(), cfg.GetLogLevel())
	logger.Info("Starting parley", "version", config.Version, "storage", cfg.GetStorageDriver())

	root := app.NewContainer(cfg, logger)
	s, err := server.New(cfg, root, logger, server.AppModules()...)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := s.RegisterRoutes(ctx); err != nil {
		slog.Error("Failed to initialize application", "error", err)
		_ = s.Shutdown(ctx)
		os.Exit(1)
	}

	if err := s.Start(ctx); err != nil {
		slog.Error("Shutdown finished with errors", "error", err)
		os.Exit(1)
	}
}
