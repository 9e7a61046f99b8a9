package weather

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-car-cover/internal/observability"
)

// ErrNotLoaded is returned by Report before the first refresh has completed.
var ErrNotLoaded = errors.New("forecast has not been loaded yet")

// ServiceConfig describes the fixed location a Service reports on.
type ServiceConfig struct {
	Location    string
	Coordinates Coordinates
	Language    language.Tag
	Clock       clockwork.Clock // nil means the real clock
}

// Service fetches the forecast for one fixed location on demand and renders
// it with the current drizzle preference. It keeps only the outcome of the
// latest refresh; a failed refresh drops the previous forecast.
type Service struct {
	provider ForecastProvider
	prefs    PreferenceReader
	renderer *Renderer
	location string
	coords   Coordinates
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu          sync.RWMutex
	started     uint64 // sequence number of the most recently started refresh
	applied     uint64 // sequence number of the refresh whose outcome is held
	inflight    int    // refreshes started but not yet finished
	forecast    *SevenDayForecast
	err         error
	lastUpdated time.Time
}

// NewService creates a new Service.
func NewService(provider ForecastProvider, prefs PreferenceReader, cfg ServiceConfig, metrics *observability.Metrics, logger *slog.Logger) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		provider: provider,
		prefs:    prefs,
		renderer: NewRenderer(cfg.Language),
		location: cfg.Location,
		coords:   cfg.Coordinates,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Refresh performs one forecast fetch and stores its outcome. Concurrent
// refreshes are not de-duplicated; an outcome that arrives after a later-started
// refresh has already been applied is discarded.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.started++
	s.inflight++
	seq := s.started
	s.mu.Unlock()

	s.logger.Debug("refreshing forecast", "provider", s.provider.Name(), "seq", seq,
		"latitude", s.coords.Latitude, "longitude", s.coords.Longitude)

	start := s.clock.Now()
	forecast, err := s.provider.FetchForecast(ctx, s.coords.Latitude, s.coords.Longitude)
	s.metrics.ForecastFetchDuration.Observe(s.clock.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if seq < s.applied {
		s.metrics.ForecastFetches.WithLabelValues(observability.OutcomeSuperseded).Inc()
		s.logger.Info("discarding superseded forecast refresh", "seq", seq, "applied", s.applied)
		return err
	}
	s.applied = seq

	if err != nil {
		s.forecast = nil
		s.err = err
		s.metrics.ForecastFetches.WithLabelValues(observability.OutcomeError).Inc()
		s.logger.Error("failed to fetch forecast", "provider", s.provider.Name(), "error", err)
		return err
	}

	s.forecast = &forecast
	s.err = nil
	s.lastUpdated = s.clock.Now()
	s.metrics.ForecastFetches.WithLabelValues(observability.OutcomeSuccess).Inc()
	s.metrics.ForecastDays.Set(float64(len(forecast.Days)))
	s.logger.Info("forecast refreshed", "days", len(forecast.Days))
	return nil
}

// Report renders the held forecast using the preference value at call time.
// It returns the stored fetch error if the last refresh failed, and
// ErrNotLoaded if no refresh has completed yet.
func (s *Service) Report() (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return Report{}, s.err
	}
	if s.forecast == nil {
		return Report{}, ErrNotLoaded
	}

	cover := s.prefs.CoverIfDrizzle()
	rep := Report{
		Location:       s.location,
		Coordinates:    s.coords,
		CoverIfDrizzle: cover,
		Days:           s.renderer.Days(*s.forecast, cover),
		LastUpdated:    s.lastUpdated,
		Loading:        s.inflight > 0,
	}
	if len(rep.Days) > 0 {
		today := rep.Days[0]
		rep.Today = &today
	}
	return rep, nil
}

// Status returns the current screen state. It never fails.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Loading:     s.inflight > 0,
		Loaded:      s.forecast != nil,
		LastUpdated: s.lastUpdated,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// LastUpdated returns when a forecast was last applied successfully.
func (s *Service) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
