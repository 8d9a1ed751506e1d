package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

var errEmptyPayload = errors.New("empty response payload")

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenWeatherOption customizes an OpenWeatherProvider.
type OpenWeatherOption func(*OpenWeatherProvider)

// WithBaseURL points the provider at a different API root.
func WithBaseURL(u string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithBackoff sets the retry policy. The default is a single attempt.
func WithBackoff(b BackoffConfig) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Backoff = b
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...OpenWeatherOption) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Current fetches /weather and returns the body unmodified.
func (p *OpenWeatherProvider) Current(ctx context.Context, q weather.Query) (json.RawMessage, error) {
	body, err := p.get(ctx, "/weather", q)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid JSON in current weather response")
	}
	if weather.IsEmptyPayload(trimmed) {
		return nil, errEmptyPayload
	}
	return json.RawMessage(trimmed), nil
}

// forecastItem mirrors one entry of the /forecast "list" array.
type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Forecast fetches /forecast and converts its samples, keeping the city object as-is.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, q weather.Query) (weather.ForecastPayload, error) {
	body, err := p.get(ctx, "/forecast", q)
	if err != nil {
		return weather.ForecastPayload{}, err
	}

	var payload struct {
		List []forecastItem `json:"list"`
		City json.RawMessage `json:"city"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.ForecastPayload{}, fmt.Errorf("failed to parse forecast response: %w", err)
	}

	samples := make([]weather.RawForecastSample, 0, len(payload.List))
	for i, item := range payload.List {
		if len(item.Weather) == 0 {
			return weather.ForecastPayload{}, fmt.Errorf("forecast sample %d has no weather condition", i)
		}
		samples = append(samples, weather.RawForecastSample{
			Timestamp:   item.Dt,
			Temp:        item.Main.Temp,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			Description: item.Weather[0].Description,
			Icon:        item.Weather[0].Icon,
			WindSpeed:   item.Wind.Speed,
		})
	}

	return weather.ForecastPayload{
		City:    payload.City,
		Samples: samples,
	}, nil
}

func (p *OpenWeatherProvider) get(ctx context.Context, path string, q weather.Query) ([]byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", q.City)
		values.Set("units", string(q.Units))
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)
