package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-car-cover/internal/weather/providers"
)

var validate = validator.New()

type AppConfig struct {
	// Fixed forecast location.
	Latitude     float64 `validate:"latitude"`
	Longitude    float64 `validate:"longitude"`
	LocationName string  `validate:"required"`

	OpenMeteoBaseURL string `validate:"required,url"`

	// HTTPTimeout bounds outbound provider calls (0 = no timeout).
	HTTPTimeout time.Duration `validate:"gte=0"`

	// RefreshInterval controls periodic refreshes (0 = manual refresh only).
	RefreshInterval time.Duration `validate:"gte=0"`

	Breaker providers.BreakerConfig

	DisplayLanguage language.Tag

	Port            string        `validate:"required,numeric"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	LogFormat       string        `validate:"oneof=json text"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	var err error
	if cfg.Latitude, err = getenvFloat("FORECAST_LATITUDE", -33.8688); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat("FORECAST_LONGITUDE", 151.2093); err != nil {
		return nil, err
	}
	cfg.LocationName = getenvDefault("LOCATION_NAME", "Sydney")
	cfg.OpenMeteoBaseURL = getenvDefault("OPEN_METEO_BASE_URL", providers.DefaultOpenMeteoURL)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	threshold, err := strconv.ParseUint(getenvDefault("BREAKER_FAILURE_THRESHOLD", "0"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid BREAKER_FAILURE_THRESHOLD: %w", err)
	}
	cfg.Breaker.FailureThreshold = uint32(threshold)
	if cfg.Breaker.OpenTimeout, err = getenvDuration("BREAKER_OPEN_TIMEOUT", "1m"); err != nil {
		return nil, err
	}

	tag, err := language.Parse(getenvDefault("DISPLAY_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_LANGUAGE: %w", err)
	}
	cfg.DisplayLanguage = tag

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
