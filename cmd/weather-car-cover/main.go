package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-car-cover/internal/api/http"
	"github.com/i474232898/weather-car-cover/internal/config"
	"github.com/i474232898/weather-car-cover/internal/observability"
	"github.com/i474232898/weather-car-cover/internal/scheduler"
	"github.com/i474232898/weather-car-cover/internal/store"
	"github.com/i474232898/weather-car-cover/internal/weather"
	"github.com/i474232898/weather-car-cover/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// The provider enforces no timeout of its own; this client's is the only one.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, cfg.Breaker, log)

	// Process-wide drizzle preference, in memory only.
	prefs := store.NewPreferences()
	metrics.ObservePreference(prefs.CoverIfDrizzle(), false)
	prefs.Subscribe(func(v bool) { metrics.ObservePreference(v, true) })

	service := weather.NewService(provider, prefs, weather.ServiceConfig{
		Location: cfg.LocationName,
		Coordinates: weather.Coordinates{
			Latitude:  cfg.Latitude,
			Longitude: cfg.Longitude,
		},
		Language: cfg.DisplayLanguage,
	}, metrics, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial load; a failure is kept as the service state and shown by the API.
	if err := service.Refresh(ctx); err != nil {
		log.Warn("initial forecast load failed", "error", err)
	}

	sched := scheduler.New(service, cfg.RefreshInterval, cfg.HTTPTimeout, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-car-cover",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:     service,
		Preferences: prefs,
		Logger:      log,
		Done:        ctx.Done(),
	})

	go func() {
		log.Info("http server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutdown complete")
}
