package weather

import (
	"context"
	"encoding/json"
)

// Provider abstracts the upstream weather API (e.g. OpenWeatherMap).
type Provider interface {
	Name() string

	// Current returns the provider's present-conditions payload verbatim.
	Current(ctx context.Context, q Query) (json.RawMessage, error)

	// Forecast returns the provider's 3-hour samples in time order plus its city object.
	Forecast(ctx context.Context, q Query) (ForecastPayload, error)
}
