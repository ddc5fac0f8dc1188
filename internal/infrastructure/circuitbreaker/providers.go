package circuitbreaker

import (
	"context"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

// GuardedStormProvider wraps a storm provider so that a flapping upstream is
// skipped while its breaker is open. An open breaker surfaces as an error,
// which the aggregation fallback chain treats like any other provider failure.
type GuardedStormProvider struct {
	provider ports.StormProvider
	breaker  *CircuitBreakerWrapper
}

// GuardStormProvider wraps the provider with the named breaker from the manager.
func GuardStormProvider(provider ports.StormProvider, mgr *Manager, cfg Config) *GuardedStormProvider {
	return &GuardedStormProvider{
		provider: provider,
		breaker:  mgr.GetBreaker(provider.Name(), cfg),
	}
}

func (g *GuardedStormProvider) Name() string {
	return g.provider.Name()
}

func (g *GuardedStormProvider) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	var storms []domain.Storm

	err := g.breaker.Execute(ctx, "FetchStorms", func() error {
		var fetchErr error
		storms, fetchErr = g.provider.FetchStorms(ctx)

		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return storms, nil
}

// GuardedWeatherProvider applies the same breaker protection to the weather
// and forecast fallback chain.
type GuardedWeatherProvider struct {
	provider ports.WeatherProvider
	breaker  *CircuitBreakerWrapper
}

func GuardWeatherProvider(provider ports.WeatherProvider, mgr *Manager, cfg Config) *GuardedWeatherProvider {
	return &GuardedWeatherProvider{
		provider: provider,
		breaker:  mgr.GetBreaker(provider.Name(), cfg),
	}
}

func (g *GuardedWeatherProvider) Name() string {
	return g.provider.Name()
}

func (g *GuardedWeatherProvider) CurrentWeather(ctx context.Context, coords domain.Coordinates) (*domain.WeatherSnapshot, error) {
	var snapshot *domain.WeatherSnapshot

	err := g.breaker.Execute(ctx, "CurrentWeather", func() error {
		var fetchErr error
		snapshot, fetchErr = g.provider.CurrentWeather(ctx, coords)

		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (g *GuardedWeatherProvider) Forecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastDay, error) {
	var days []domain.ForecastDay

	err := g.breaker.Execute(ctx, "Forecast", func() error {
		var fetchErr error
		days, fetchErr = g.provider.Forecast(ctx, coords)

		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	return days, nil
}
