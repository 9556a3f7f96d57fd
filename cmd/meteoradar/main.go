package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/meteoradar/internal/api/http"
	"github.com/i474232898/meteoradar/internal/config"
	"github.com/i474232898/meteoradar/internal/logging"
	"github.com/i474232898/meteoradar/internal/observability"
	"github.com/i474232898/meteoradar/internal/radar"
	"github.com/i474232898/meteoradar/internal/radar/providers"
	"github.com/i474232898/meteoradar/internal/scheduler"
	"github.com/i474232898/meteoradar/internal/sensor"
	"github.com/i474232898/meteoradar/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound RainViewer calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewRainViewerProvider(httpClient, cfg.RainViewerBaseURL)
	resolver := radar.NewResolver(provider, radar.Options{
		Location:          cfg.Location,
		SelectByTimestamp: cfg.SelectByTimestamp,
	})

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, clock)

	service := sensor.NewService(resolver, memStore, lg.With().Str("component", "sensor").Logger(), metrics, clock)

	for _, code := range cfg.Radars {
		ev := lg.Info().
			Str("radar", code).
			Str("entity_id", sensor.EntityID(code)).
			Str("timezone", cfg.Timezone)
		if cfg.UpdateCron != "" {
			ev = ev.Str("cron", cfg.UpdateCron)
		} else {
			ev = ev.Dur("interval", cfg.UpdateInterval)
		}
		ev.Msg("meteoradar initialized")
	}

	// Scheduler that periodically polls every radar.
	schedLogger := lg.With().Str("component", "scheduler").Logger()
	sched := scheduler.New(schedLogger)
	poller := scheduler.NewPoller(service, cfg.Radars, cfg.HTTPTimeout, schedLogger)
	if cfg.UpdateCron != "" {
		err = poller.RegisterCron(sched, cfg.UpdateCron)
	} else {
		err = poller.Register(sched, cfg.UpdateInterval)
	}
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to schedule radar polling")
	}
	sched.Start()
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "meteoradar",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service)

	go func() {
		lg.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	lg.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
}
