package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded on ForecastFetches.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// Metrics holds the Prometheus collectors for forecast refreshes and preferences.
type Metrics struct {
	ForecastFetches       *prometheus.CounterVec // labels: outcome={success,error,superseded}
	ForecastFetchDuration prometheus.Histogram
	ForecastDays          prometheus.Gauge

	PreferenceChanges prometheus.Counter
	CoverIfDrizzle    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ForecastFetches,
		m.ForecastFetchDuration,
		m.ForecastDays,
		m.PreferenceChanges,
		m.CoverIfDrizzle,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ForecastFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carcover",
			Name:      "forecast_fetches_total",
			Help:      "Forecast refreshes by outcome.",
		}, []string{"outcome"}),
		ForecastFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carcover",
			Name:      "forecast_fetch_duration_seconds",
			Help:      "Duration of a forecast provider request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ForecastDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carcover",
			Name:      "forecast_days",
			Help:      "Number of days in the most recently applied forecast.",
		}),
		PreferenceChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carcover",
			Name:      "preference_changes_total",
			Help:      "Times the cover-if-drizzle preference was changed.",
		}),
		CoverIfDrizzle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carcover",
			Name:      "cover_if_drizzle",
			Help:      "1 when drizzle is treated as safe to cover, 0 otherwise.",
		}),
	}
}

// ObservePreference records the current cover-if-drizzle value. changed is
// false for the initial observation at startup.
func (m *Metrics) ObservePreference(coverIfDrizzle, changed bool) {
	if changed {
		m.PreferenceChanges.Inc()
	}
	if coverIfDrizzle {
		m.CoverIfDrizzle.Set(1)
	} else {
		m.CoverIfDrizzle.Set(0)
	}
}
