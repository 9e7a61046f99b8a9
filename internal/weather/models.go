package weather

import (
	"fmt"
	"time"
)

// Condition represents the precipitation severity the app cares about for a day.
type Condition string

const (
	ConditionNone    Condition = "none"
	ConditionDrizzle Condition = "drizzle"
	ConditionRain    Condition = "rain"
)

// MaxForecastDays is the longest forecast kept from a provider response.
const MaxForecastDays = 7

// Coordinates is the fixed point the forecast is requested for.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DayForecast is one calendar day of normalized forecast data.
// Condition is always ConditionNone when WeatherCode is nil.
type DayForecast struct {
	Date            string    `json:"date"` // ISO-8601, e.g. "2025-11-19"
	Condition       Condition `json:"condition"`
	PrecipitationMm *float64  `json:"precipitationMm"`
	WeatherCode     *int      `json:"weatherCode"`
}

// SevenDayForecast holds at most MaxForecastDays entries ordered by date
// ascending. Days[0] is today. Short provider responses are not padded.
type SevenDayForecast struct {
	Days []DayForecast `json:"days"`
}

// FetchError is returned when a forecast could not be retrieved: either the
// provider answered with a non-success status, or the transport/decoding failed.
type FetchError struct {
	StatusCode int    // zero when no HTTP response was received
	Body       string // response body text for non-success statuses
	Err        error  // underlying transport or decode error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather API error: %d %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("weather API request failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Report is the rendered view of a forecast under the current preference.
type Report struct {
	Location       string      `json:"location"`
	Coordinates    Coordinates `json:"coordinates"`
	CoverIfDrizzle bool        `json:"coverIfDrizzle"`
	Today          *DayReport  `json:"today,omitempty"`
	Days           []DayReport `json:"days"`
	LastUpdated    time.Time   `json:"lastUpdated"`
	Loading        bool        `json:"loading"`
}

// Status is the screen state without the rendered forecast. Unlike Report it
// is available before the first load and after a failed one.
type Status struct {
	Loading     bool      `json:"loading"`
	Loaded      bool      `json:"loaded"`
	LastUpdated time.Time `json:"lastUpdated"`
	Error       string    `json:"error,omitempty"`
}

// DayReport is a single rendered forecast row.
type DayReport struct {
	Date            string    `json:"date"`
	Label           string    `json:"label"`
	Condition       Condition `json:"condition"`
	Status          string    `json:"status"`
	Advice          Advice    `json:"advice"`
	PrecipitationMm *float64  `json:"precipitationMm,omitempty"`
	Precipitation   string    `json:"precipitation,omitempty"`
}
