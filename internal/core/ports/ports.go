// Package ports defines the interfaces between the core aggregation logic
// and its adapters. Primary adapters (REST) drive the services; secondary
// adapters (provider clients, cache, database) are driven by them.
package ports

import (
	"context"
	"time"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// StormProvider is the contract every storm-capable provider adapter
// implements. FetchStorms returns normalized candidates; a provider that
// fails entirely returns an error, while partial probe failures inside the
// adapter are swallowed and logged so one bad point never aborts the rest.
// An empty slice with a nil error means "no active storms seen here" and
// tells the aggregator to consult the next provider in priority order.
type StormProvider interface {
	// Name is the provider tag recorded in Storm.Source.
	Name() string

	// FetchStorms queries the provider and extracts zero or more
	// normalized storm candidates.
	FetchStorms(ctx context.Context) ([]domain.Storm, error)
}

// WeatherProvider serves current conditions and daily forecasts for a point.
type WeatherProvider interface {
	Name() string
	CurrentWeather(ctx context.Context, coords domain.Coordinates) (*domain.WeatherSnapshot, error)
	Forecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastDay, error)
}

// AlertProvider serves severe-weather advisories for a point.
type AlertProvider interface {
	Name() string
	Alerts(ctx context.Context, coords domain.Coordinates) ([]domain.Alert, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, location string) (domain.Coordinates, error)
}

// TyphoonService is the aggregation entry point for storm data.
type TyphoonService interface {
	// ActiveStorms returns the merged, deduplicated storm list. An empty
	// slice is a meaningful "no active storms" result, never an error.
	ActiveStorms(ctx context.Context) ([]domain.Storm, error)
}

// WeatherService is the aggregation entry point for weather data.
type WeatherService interface {
	Weather(ctx context.Context, location string) (*domain.WeatherSnapshot, error)
	Forecast(ctx context.Context, location string) ([]domain.ForecastDay, error)
	Alerts(ctx context.Context, location string) ([]domain.Alert, error)
}

// CacheService abstracts response caching (Redis or in-memory).
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RateLimitService abstracts per-client request limiting.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
}

// SightingStats summarizes the storm-history table for the /stats endpoint.
type SightingStats struct {
	DistinctStorms int            `json:"distinct_storms"`
	TotalSightings int            `json:"total_sightings"`
	BySource       map[string]int `json:"by_source"`
}

// StormRepository persists storm sightings for "seen before" tracking. The
// repository is optional: when absent the aggregation path is unaffected.
type StormRepository interface {
	// RecordSighting upserts one sighting keyed by the storm's id.
	RecordSighting(ctx context.Context, storm domain.Storm) error

	// SeenBefore reports whether the storm id has been recorded already.
	SeenBefore(ctx context.Context, stormID string) (bool, error)

	// Stats aggregates sightings recorded since the given time.
	Stats(ctx context.Context, since time.Time) (*SightingStats, error)
}
