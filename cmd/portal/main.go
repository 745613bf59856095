package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/eduassist/portal/config"
	"github.com/eduassist/portal/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(cfg.Logging)
	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	logStartupInfo(ctx, logger, cfg)

	infra, err := bootstrap.InitInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close(logger)

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config: cfg,
		Infra:  infra,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting eduassist portal",
		"addr", cfg.HTTP.Addr,
		"backend", cfg.Backend.BaseURL,
		"auth_mode", string(cfg.Auth.Mode),
		"storage", string(cfg.Storage.Driver),
		"capture_transport", string(cfg.Capture.Transport),
		"dev", cfg.IsDev,
	)
}
