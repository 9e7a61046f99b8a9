package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-car-cover/internal/weather"
)

// DefaultOpenMeteoURL is the public Open-Meteo forecast endpoint. No API key is required.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo daily forecasts.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewOpenMeteoProvider creates a provider. The client's Timeout is the only
// timeout applied to requests; the provider itself enforces none.
func NewOpenMeteoProvider(client *http.Client, baseURL string, breaker BreakerConfig, logger *slog.Logger) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  client,
		circuit: newCircuitBreaker("openmeteo", breaker, logger),
		logger:  logger,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchForecast requests the daily weather code and precipitation sum series
// for the coordinates and normalizes them into at most seven days.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, latitude, longitude float64) (weather.SevenDayForecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	values.Set("daily", "weathercode,precipitation_sum")
	values.Set("timezone", "auto")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return weather.SevenDayForecast{}, &weather.FetchError{Err: fmt.Errorf("create request: %w", err)}
	}

	body, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return weather.SevenDayForecast{}, err
	}

	var payload dailyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.SevenDayForecast{}, &weather.FetchError{Err: fmt.Errorf("decode response: %w", err)}
	}

	forecast := normalizeDaily(payload.Daily)
	p.logger.Debug("open-meteo forecast fetched", "days", len(forecast.Days), "returned", len(payload.Daily.Time))
	return forecast, nil
}

// Open-Meteo response types. Every series is optional and elements are
// decoded one by one so a single odd value does not fail the whole response.

type dailyResponse struct {
	Daily dailySeries `json:"daily"`
}

type dailySeries struct {
	Time             []string          `json:"time"`
	WeatherCode      []json.RawMessage `json:"weathercode"`
	PrecipitationSum []json.RawMessage `json:"precipitation_sum"`
}

// normalizeDaily zips the series by index of the time array, guarding each
// lookup, and keeps the first weather.MaxForecastDays entries.
func normalizeDaily(d dailySeries) weather.SevenDayForecast {
	n := min(len(d.Time), weather.MaxForecastDays)

	days := make([]weather.DayForecast, 0, n)
	for i := 0; i < n; i++ {
		day := weather.DayForecast{
			Date:      d.Time[i],
			Condition: weather.ConditionNone,
		}
		if code, ok := codeAt(d.WeatherCode, i); ok {
			day.WeatherCode = &code
			day.Condition = weather.Classify(code)
		}
		if mm, ok := numberAt(d.PrecipitationSum, i); ok {
			rounded := roundTenths(mm)
			day.PrecipitationMm = &rounded
		}
		days = append(days, day)
	}
	return weather.SevenDayForecast{Days: days}
}

// numberAt returns the numeric value at index i, or false when the index is
// out of range or the element is null or not a number.
func numberAt(vals []json.RawMessage, i int) (float64, bool) {
	if i >= len(vals) {
		return 0, false
	}
	var n *float64
	if err := json.Unmarshal(vals[i], &n); err != nil || n == nil {
		return 0, false
	}
	return *n, true
}

// codeAt is numberAt restricted to integral values within int32 range.
func codeAt(vals []json.RawMessage, i int) (int, bool) {
	f, ok := numberAt(vals, i)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// roundTenths rounds half up to one decimal place.
func roundTenths(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
