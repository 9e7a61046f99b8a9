package weather

import (
	"context"
)

// ForecastProvider abstracts a daily forecast source (e.g. Open-Meteo).
// Implementations perform exactly one request per call and never retry.
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, latitude, longitude float64) (SevenDayForecast, error)
}

// PreferenceReader exposes the drizzle preference read-only.
type PreferenceReader interface {
	CoverIfDrizzle() bool
}
