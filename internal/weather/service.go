package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/weather-proxy/internal/cache"
)

const (
	DefaultCurrentTTL  = 30 * time.Minute
	DefaultForecastTTL = 60 * time.Minute
)

// ErrUpstream wraps any failure of the weather provider.
var ErrUpstream = errors.New("weather provider request failed")

// ErrEmptyPayload is returned when the provider answers without usable data.
var ErrEmptyPayload = errors.New("empty weather payload")

// Service serves current weather and forecasts through a read-through cache.
type Service struct {
	provider    Provider
	cache       *cache.Cache
	currentTTL  time.Duration
	forecastTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithCurrentTTL overrides how long current weather stays cached.
func WithCurrentTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.currentTTL = d
		}
	}
}

// WithForecastTTL overrides how long forecasts stay cached.
func WithForecastTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.forecastTTL = d
		}
	}
}

// NewService creates a new Service.
func NewService(provider Provider, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		cache:       c,
		currentTTL:  DefaultCurrentTTL,
		forecastTTL: DefaultForecastTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentKey is the cache key for a current weather query.
func CurrentKey(city string, units Units) string {
	return fmt.Sprintf("weather_%s_%s", city, units)
}

// ForecastKey is the cache key for a forecast query.
func ForecastKey(city string, units Units, days int) string {
	return fmt.Sprintf("forecast_%s_%s_%d", city, units, days)
}

// CacheStats reports hits and misses of the underlying cache.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// CurrentWeather returns the provider's current weather payload for q, unmodified.
func (s *Service) CurrentWeather(ctx context.Context, q Query) (json.RawMessage, error) {
	q = withDefaults(q)
	key := CurrentKey(q.City, q.Units)

	return cache.Remember(ctx, s.cache, key, s.currentTTL, func(ctx context.Context) (json.RawMessage, error) {
		log.Printf("DEBUG: fetching current weather for %s (%s) from %s", q.City, q.Units, s.provider.Name())

		data, err := s.provider.Current(ctx, q)
		if err != nil {
			log.Printf("ERROR: %s current weather failed for %s: %v", s.provider.Name(), q.City, err)
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if IsEmptyPayload(data) {
			log.Printf("ERROR: %s returned an empty current weather payload for %s", s.provider.Name(), q.City)
			return nil, fmt.Errorf("%w: %w", ErrUpstream, ErrEmptyPayload)
		}
		return data, nil
	})
}

// Forecast returns the per-day forecast for q, limited to q.Days days.
func (s *Service) Forecast(ctx context.Context, q Query) (ForecastResult, error) {
	q = withDefaults(q)
	if q.Days > MaxForecastDays {
		return ForecastResult{}, fmt.Errorf("days must be between 1 and %d", MaxForecastDays)
	}
	key := ForecastKey(q.City, q.Units, q.Days)

	return cache.Remember(ctx, s.cache, key, s.forecastTTL, func(ctx context.Context) (ForecastResult, error) {
		log.Printf("DEBUG: fetching %d-day forecast for %s (%s) from %s", q.Days, q.City, q.Units, s.provider.Name())

		payload, err := s.provider.Forecast(ctx, q)
		if err != nil {
			log.Printf("ERROR: %s forecast failed for %s: %v", s.provider.Name(), q.City, err)
			return ForecastResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return Aggregate(payload.City, payload.Samples, q.Days), nil
	})
}

func withDefaults(q Query) Query {
	if q.Units == "" {
		q.Units = DefaultUnits
	}
	if q.Days <= 0 {
		q.Days = DefaultForecastDays
	}
	return q
}
