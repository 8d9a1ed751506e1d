package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-proxy/internal/cache"
	"github.com/i474232898/weather-proxy/internal/weather"
)

type fakeProvider struct {
	currentCalls  int
	forecastCalls int
	lastQuery     weather.Query
	current       json.RawMessage
	forecast      weather.ForecastPayload
	err           error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Current(_ context.Context, q weather.Query) (json.RawMessage, error) {
	p.currentCalls++
	p.lastQuery = q
	return p.current, p.err
}

func (p *fakeProvider) Forecast(_ context.Context, q weather.Query) (weather.ForecastPayload, error) {
	p.forecastCalls++
	p.lastQuery = q
	return p.forecast, p.err
}

func newTestApp(p weather.Provider) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	svc := weather.NewService(p, cache.New(cache.NewMemoryStore(nil, 0)))
	RegisterRoutes(app, svc)
	return app
}

func doGet(t *testing.T, app *fiber.App, target string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func fiveDays() []weather.RawForecastSample {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]weather.RawForecastSample, 0, 40)
	for i := 0; i < 40; i++ {
		out = append(out, weather.RawForecastSample{
			Timestamp:   start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			Temp:        float64(i),
			TempMin:     float64(i) - 1,
			TempMax:     float64(i) + 1,
			Humidity:    70,
			Description: "scattered clouds",
			Icon:        "03d",
			WindSpeed:   2,
		})
	}
	return out
}

func TestCurrentWeatherPassthrough(t *testing.T) {
	body := `{"name":"Paris","main":{"temp":21.4},"cod":200}`
	p := &fakeProvider{current: json.RawMessage(body)}
	app := newTestApp(p)

	status, got := doGet(t, app, "/api/weather?city=Paris")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, body, string(got))
	assert.Equal(t, weather.UnitsMetric, p.lastQuery.Units)

	status, _ = doGet(t, app, "/api/weather?city=Paris&units=metric")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, p.currentCalls)
}

func TestCurrentWeatherValidation(t *testing.T) {
	p := &fakeProvider{current: json.RawMessage(`{}`)}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/weather")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(body), "The city field is required.")

	status, body = doGet(t, app, "/api/weather?city=Paris&units=kelvin")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(body), "The selected units is invalid.")

	assert.Equal(t, 0, p.currentCalls)
}

func TestCurrentWeatherUpstreamFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/weather?city=Paris")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"message":"Failed to fetch weather data from external API"}`, string(body))

	doGet(t, app, "/api/weather?city=Paris")
	assert.Equal(t, 2, p.currentCalls)
}

func TestCurrentWeatherEmptyPayloadIsFailure(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `false`, `0`, `""`} {
		t.Run(body, func(t *testing.T) {
			p := &fakeProvider{current: json.RawMessage(body)}
			app := newTestApp(p)

			status, got := doGet(t, app, "/api/weather?city=Paris")
			assert.Equal(t, http.StatusInternalServerError, status)
			assert.JSONEq(t, `{"message":"Failed to fetch weather data from external API"}`, string(got))

			doGet(t, app, "/api/weather?city=Paris")
			assert.Equal(t, 2, p.currentCalls)
		})
	}
}

func TestForecastTruncatesDays(t *testing.T) {
	p := &fakeProvider{forecast: weather.ForecastPayload{
		City:    json.RawMessage(`{"name":"Paris","country":"FR"}`),
		Samples: fiveDays(),
	}}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/forecast?city=Paris&units=imperial&days=2")
	require.Equal(t, http.StatusOK, status)

	var got weather.ForecastResult
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Days, 2)
	assert.Equal(t, "2024-01-01", got.Days[0].Date)
	assert.Equal(t, "2024-01-02", got.Days[1].Date)
	assert.Len(t, got.Days[0].Hourly, 8)
	assert.JSONEq(t, `{"name":"Paris","country":"FR"}`, string(got.City))
	assert.Equal(t, weather.UnitsImperial, p.lastQuery.Units)
}

func TestForecastDefaults(t *testing.T) {
	p := &fakeProvider{forecast: weather.ForecastPayload{Samples: fiveDays()}}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/forecast?city=Paris")
	require.Equal(t, http.StatusOK, status)

	var got weather.ForecastResult
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got.Days, weather.DefaultForecastDays)
	assert.JSONEq(t, `{}`, string(got.City))
	assert.Equal(t, weather.UnitsMetric, p.lastQuery.Units)
}

func TestForecastEmptyList(t *testing.T) {
	p := &fakeProvider{}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/forecast?city=Paris&days=3")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"city":{},"days":[]}`, string(body))
}

// TestForecastDaysValidation verifies that the forecast endpoint enforces the
// expected 1-7 range for the `days` query parameter.
func TestForecastDaysValidation(t *testing.T) {
	p := &fakeProvider{forecast: weather.ForecastPayload{Samples: fiveDays()}}
	app := newTestApp(p)

	for _, target := range []string{
		"/api/forecast?city=Paris&days=0",
		"/api/forecast?city=Paris&days=8",
		"/api/forecast?city=Paris&days=two",
		"/api/forecast?days=3",
	} {
		status, body := doGet(t, app, target)
		assert.Equal(t, http.StatusUnprocessableEntity, status, target)

		var got struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(body, &got), target)
		assert.NotEmpty(t, got.Message, target)
		assert.NotEmpty(t, got.Errors, target)
	}

	assert.Equal(t, 0, p.forecastCalls)
}

func TestForecastUpstreamFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	app := newTestApp(p)

	status, body := doGet(t, app, "/api/forecast?city=Paris")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"message":"Failed to fetch forecast data from external API"}`, string(body))
}

func TestHealthReportsCacheStats(t *testing.T) {
	p := &fakeProvider{current: json.RawMessage(`{"name":"Paris"}`)}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	svc := weather.NewService(p, cache.New(cache.NewMemoryStore(nil, 0)))
	RegisterRoutes(app, svc)
	RegisterHealth(app, "weather-proxy", svc)

	doGet(t, app, "/api/weather?city=Paris")
	doGet(t, app, "/api/weather?city=Paris")

	status, body := doGet(t, app, "/health")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"weather-proxy","cache":{"hits":1,"misses":1}}`, string(body))
}
