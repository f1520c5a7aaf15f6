package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/core"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/reports"
	gsheet "finboard/internal/sheets/google"
)

func main() {
	logger, cfg := cli.Bootstrap()
	ctx := context.Background()

	res := cli.InitBackend(ctx, logger, cfg)
	cached := reports.NewCachedFetcher(res.Fetcher, cfg.CacheSize, cfg.CacheTTL)

	caches := cache.NewManager()
	caches.Register(cached.Cache())
	caches.StartCleanup(time.Minute)

	deps := apphttp.Deps{
		Reports:     reports.NewService(cached),
		Invalidator: cached,
		Location:    core.LoadLocation(cfg.Timezone),
		Cache:       cached.Cache(),
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		deps.Publisher = amqpClient
	}

	if cfg.SheetsExportEnabled() {
		sheets, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Warn("Google Sheets export disabled", applog.FieldError, err)
		} else {
			deps.Exporter = sheets
			logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	})

	logger.Info("Starting finboard server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
