package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/pws-daily-ingest/internal/api/http"
	"github.com/i474232898/pws-daily-ingest/internal/config"
	"github.com/i474232898/pws-daily-ingest/internal/logging"
	"github.com/i474232898/pws-daily-ingest/internal/scheduler"
	"github.com/i474232898/pws-daily-ingest/internal/store"
	"github.com/i474232898/pws-daily-ingest/internal/weather"
	"github.com/i474232898/pws-daily-ingest/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Errorw("service stopped", "error", err)
		_ = zlog.Sync()
		os.Exit(1)
	}
	_ = zlog.Sync()
}

// run wires the service and blocks until a termination signal. Resources are
// released by its defers before main decides the exit code.
func run(cfg *config.AppConfig, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence is optional; without it only the proxy routes work.
	var dailyStore weather.Store
	if cfg.PersistenceEnabled() {
		sqlStore, err := openStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Errorw("daily store unavailable; ingestion disabled", "error", err)
		} else {
			defer sqlStore.Close()
			dailyStore = sqlStore
		}
	} else {
		log.Info("no database configured; ingestion disabled")
	}

	if cfg.WUAPIKey == "" {
		log.Warn("no weather.com api key configured; upstream routes will fail")
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.UpstreamTimeout,
	}

	upstream := providers.NewWundergroundProvider(httpClient, providers.WundergroundConfig{
		APIKey:    cfg.WUAPIKey,
		BaseURL:   cfg.WUBaseURL,
		UserAgent: cfg.UserAgent,
		Location:  cfg.ReferenceTZ,
	})

	// Core service orchestrating upstream and store.
	service := weather.NewService(dailyStore, upstream, log)

	// Daily trigger for the configured station.
	sched := scheduler.New(scheduler.Config{
		Enabled:   cfg.SchedulerEnabled() && service.PersistenceEnabled(),
		StationID: cfg.IngestStationID,
		Location:  cfg.ReferenceTZ,
	}, service, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "pws-daily-ingest",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.UpstreamTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(recover.New())

	// API routes, then the front-end bundle.
	httpapi.RegisterRoutes(app, service, httpapi.Options{
		UpstreamTimeout: cfg.UpstreamTimeout,
		Logger:          log,
	})
	app.Static("/", cfg.StaticDir)

	listenErr := make(chan error, 1)
	go func() {
		log.Infow("listening", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-listenErr:
		return fmt.Errorf("fiber server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects and creates the schema if it is missing.
func openStore(ctx context.Context, dsn string, log *zap.SugaredLogger) (*store.SQLStore, error) {
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	s, err := store.Open(initCtx, dsn, log)
	if err != nil {
		return nil, err
	}
	if err := s.Init(initCtx); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Infow("daily store ready", "dialect", store.DialectFor(dsn))
	return s, nil
}
