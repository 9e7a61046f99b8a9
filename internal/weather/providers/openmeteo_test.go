package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-car-cover/internal/observability"
	"github.com/i474232898/weather-car-cover/internal/weather"
)

const (
	testLat           = -33.8688
	testLon           = 151.2093
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testProvider(baseURL string, breaker BreakerConfig) *OpenMeteoProvider {
	return NewOpenMeteoProvider(&http.Client{Timeout: 5 * time.Second}, baseURL, breaker, observability.NewDiscardLogger())
}

// jsonServer answers every request with body and counts the requests it saw.
func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func dailyJSON(t *testing.T, daily map[string]any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"daily": daily})
	require.NoError(t, err)
	return string(b)
}

func TestOpenMeteo_RequestParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "-33.8688", q.Get("latitude"))
		assert.Equal(t, "151.2093", q.Get("longitude"))
		assert.Equal(t, "weathercode,precipitation_sum", q.Get("daily"))
		assert.Equal(t, "auto", q.Get("timezone"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"daily":{"time":[],"weathercode":[],"precipitation_sum":[]}}`))
	}))
	defer srv.Close()

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Empty(t, f.Days)
}

func TestOpenMeteo_ParsesDays(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusOK, dailyJSON(t, map[string]any{
		"time":              []string{"2025-11-19", "2025-11-20", "2025-11-21"},
		"weathercode":       []int{61, 53, 2},
		"precipitation_sum": []float64{12.44, 0.6, 0},
	}))

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "exactly one request per call")

	require.Len(t, f.Days, 3)
	assert.Equal(t, "2025-11-19", f.Days[0].Date)
	assert.Equal(t, weather.ConditionRain, f.Days[0].Condition)
	require.NotNil(t, f.Days[0].WeatherCode)
	assert.Equal(t, 61, *f.Days[0].WeatherCode)
	require.NotNil(t, f.Days[0].PrecipitationMm)
	assert.Equal(t, 12.4, *f.Days[0].PrecipitationMm)

	assert.Equal(t, weather.ConditionDrizzle, f.Days[1].Condition)
	assert.Equal(t, weather.ConditionNone, f.Days[2].Condition)
	assert.Equal(t, 0.0, *f.Days[2].PrecipitationMm)
}

func TestOpenMeteo_TruncatesToSevenDays(t *testing.T) {
	dates := make([]string, 10)
	codes := make([]int, 10)
	for i := range dates {
		dates[i] = time.Date(2025, 11, 19+i, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
		codes[i] = i
	}
	srv, _ := jsonServer(t, http.StatusOK, dailyJSON(t, map[string]any{
		"time":        dates,
		"weathercode": codes,
	}))

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)

	require.Len(t, f.Days, weather.MaxForecastDays)
	for i, d := range f.Days {
		assert.Equal(t, dates[i], d.Date)
	}
}

func TestOpenMeteo_ShortResponseNotPadded(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, dailyJSON(t, map[string]any{
		"time":        []string{"2025-11-19", "2025-11-20"},
		"weathercode": []int{0, 0},
	}))

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Len(t, f.Days, 2)
}

func TestOpenMeteo_MissingPrecipitation(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, dailyJSON(t, map[string]any{
		"time":        []string{"2025-11-19", "2025-11-20", "2025-11-21"},
		"weathercode": []int{61, 51, 0},
	}))

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	require.Len(t, f.Days, 3)
	for _, d := range f.Days {
		assert.Nil(t, d.PrecipitationMm, d.Date)
	}
}

func TestOpenMeteo_MissingDaily(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `{"latitude":-33.875,"longitude":151.25}`)

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Empty(t, f.Days)
}

func TestOpenMeteo_MisalignedAndNullValues(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK,
		`{"daily":{"time":["2025-11-19","2025-11-20","2025-11-21","2025-11-22"],`+
			`"weathercode":[null,"61",63.5],`+
			`"precipitation_sum":[1.0,null]}}`)

	f, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.NoError(t, err)
	require.Len(t, f.Days, 4, "iteration follows the time array")

	for _, d := range f.Days {
		assert.Nil(t, d.WeatherCode, d.Date)
		assert.Equal(t, weather.ConditionNone, d.Condition, "no code means no rain: %s", d.Date)
	}
	require.NotNil(t, f.Days[0].PrecipitationMm)
	assert.Equal(t, 1.0, *f.Days[0].PrecipitationMm)
	assert.Nil(t, f.Days[1].PrecipitationMm)
	assert.Nil(t, f.Days[3].PrecipitationMm)
}

func TestOpenMeteo_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusInternalServerError, "server error")

	_, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.Error(t, err)

	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, "server error", fe.Body)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "server error")
}

func TestOpenMeteo_NoRetryOnFailure(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusServiceUnavailable, "busy")

	_, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenMeteo_MalformedJSON(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `{"daily":`)

	_, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.Contains(t, err.Error(), "decode response")
}

func TestOpenMeteo_TransportFailure(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, "{}")
	url := srv.URL
	srv.Close()

	_, err := testProvider(url, BreakerConfig{}).FetchForecast(context.Background(), testLat, testLon)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.Error(t, fe.Err)
}

func TestOpenMeteo_ClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(&http.Client{Timeout: 50 * time.Millisecond}, srv.URL, BreakerConfig{}, observability.NewDiscardLogger())
	_, err := p.FetchForecast(context.Background(), testLat, testLon)
	require.Error(t, err)
}

func TestOpenMeteo_ContextCancelled(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusOK, "{}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testProvider(srv.URL, BreakerConfig{}).FetchForecast(ctx, testLat, testLon)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), hits.Load())
}

func TestOpenMeteo_BreakerDisabledByDefault(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusInternalServerError, "down")
	p := testProvider(srv.URL, BreakerConfig{})

	for i := 0; i < 10; i++ {
		_, err := p.FetchForecast(context.Background(), testLat, testLon)
		require.Error(t, err)
	}
	assert.Equal(t, int32(10), hits.Load())
}

func TestOpenMeteo_BreakerOpensAfterThreshold(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusInternalServerError, "down")
	p := testProvider(srv.URL, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := p.FetchForecast(context.Background(), testLat, testLon)
		require.Error(t, err)
	}

	_, err := p.FetchForecast(context.Background(), testLat, testLon)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(2), hits.Load(), "open circuit must not reach the provider")
}

func TestRoundTenths(t *testing.T) {
	assert.Equal(t, 2.3, roundTenths(2.34))
	assert.Equal(t, 2.4, roundTenths(2.36))
	assert.Equal(t, 2.4, roundTenths(2.35000001))
	assert.Equal(t, 0.0, roundTenths(0.04))
	assert.Equal(t, 0.1, roundTenths(0.05))
	assert.Equal(t, 12.0, roundTenths(12))
}

func TestNormalizeDaily_CodeAt(t *testing.T) {
	vals := []json.RawMessage{
		json.RawMessage(`95`),
		json.RawMessage(`-3`),
		json.RawMessage(`1e12`),
		json.RawMessage(`true`),
	}

	c, ok := codeAt(vals, 0)
	assert.True(t, ok)
	assert.Equal(t, 95, c)

	c, ok = codeAt(vals, 1)
	assert.True(t, ok)
	assert.Equal(t, -3, c)

	_, ok = codeAt(vals, 2)
	assert.False(t, ok)

	_, ok = codeAt(vals, 3)
	assert.False(t, ok)

	_, ok = codeAt(vals, 4)
	assert.False(t, ok)
}
