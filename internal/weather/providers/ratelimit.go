package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/i474232898/weather-proxy/internal/weather"
)

// RateLimited wraps a weather.Provider with an outbound request limiter.
// Current and forecast calls share one token bucket.
type RateLimited struct {
	provider weather.Provider
	limiter  *rate.Limiter
	name     string
}

// NewRateLimited allows rps requests per second (fractional values allowed)
// with bursts of up to burst requests.
func NewRateLimited(provider weather.Provider, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		name:     fmt.Sprintf("%s [Rate Limited]", provider.Name()),
	}
}

func (r *RateLimited) Name() string {
	return r.name
}

func (r *RateLimited) Current(ctx context.Context, q weather.Query) (json.RawMessage, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Current(ctx, q)
}

func (r *RateLimited) Forecast(ctx context.Context, q weather.Query) (weather.ForecastPayload, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return weather.ForecastPayload{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Forecast(ctx, q)
}

var _ weather.Provider = (*RateLimited)(nil)
