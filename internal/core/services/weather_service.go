package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

type weatherService struct {
	geocoder  ports.Geocoder
	providers []ports.WeatherProvider
	alerters  []ports.AlertProvider
	cache     ports.CacheService
	cacheTTL  time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewWeatherService builds the weather aggregator. Weather providers are
// consulted in slice order; when all of them fail the service falls back to
// a locally generated snapshot tagged with domain.SyntheticSource. Alert
// providers are additive rather than fallback: every reachable one
// contributes.
func NewWeatherService(
	geocoder ports.Geocoder,
	providers []ports.WeatherProvider,
	alerters []ports.AlertProvider,
	cache ports.CacheService,
	cacheTTL time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) ports.WeatherService {
	return &weatherService{
		geocoder:  geocoder,
		providers: providers,
		alerters:  alerters,
		cache:     cache,
		cacheTTL:  cacheTTL,
		clock:     clock,
		logger:    logger,
	}
}

func (s *weatherService) Weather(ctx context.Context, location string) (*domain.WeatherSnapshot, error) {
	location, err := s.cleanLocation(location)
	if err != nil {
		return nil, err
	}

	cacheKey := "weather:" + strings.ToLower(location)
	var cached domain.WeatherSnapshot
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	coords, err := s.resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	for _, provider := range s.providers {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		snapshot, err := provider.CurrentWeather(pctx, coords)
		cancel()

		if err != nil {
			s.logger.Warn("weather provider failed, trying next",
				zap.String("provider", provider.Name()),
				zap.String("location", location),
				zap.Error(err))
			continue
		}

		snapshot.Location = location
		s.cacheSet(ctx, cacheKey, snapshot)
		return snapshot, nil
	}

	s.logger.Warn("all weather providers failed, serving synthetic data",
		zap.String("location", location))
	snapshot := SyntheticWeather(location, coords, s.clock.Now().UTC())
	return snapshot, nil
}

func (s *weatherService) Forecast(ctx context.Context, location string) ([]domain.ForecastDay, error) {
	location, err := s.cleanLocation(location)
	if err != nil {
		return nil, err
	}

	cacheKey := "forecast:" + strings.ToLower(location)
	var cached []domain.ForecastDay
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	coords, err := s.resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	for _, provider := range s.providers {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		days, err := provider.Forecast(pctx, coords)
		cancel()

		if err != nil || len(days) == 0 {
			s.logger.Warn("forecast provider failed, trying next",
				zap.String("provider", provider.Name()),
				zap.String("location", location),
				zap.Error(err))
			continue
		}

		s.cacheSet(ctx, cacheKey, days)
		return days, nil
	}

	s.logger.Warn("all forecast providers failed, serving synthetic data",
		zap.String("location", location))
	return SyntheticForecast(location, s.clock.Now().UTC()), nil
}

// Alerts aggregates advisories from every alert provider. A failing provider
// is skipped, not fatal, and an empty list is a valid "all clear" answer.
// Unlike weather and forecast there is no synthetic fallback: an invented
// alert would be worse than none.
func (s *weatherService) Alerts(ctx context.Context, location string) ([]domain.Alert, error) {
	location, err := s.cleanLocation(location)
	if err != nil {
		return nil, err
	}

	coords, err := s.resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	alerts := []domain.Alert{}
	for _, provider := range s.alerters {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		found, err := provider.Alerts(pctx, coords)
		cancel()

		if err != nil {
			s.logger.Warn("alert provider failed, skipping",
				zap.String("provider", provider.Name()),
				zap.String("location", location),
				zap.Error(err))
			continue
		}
		alerts = append(alerts, found...)
	}

	return alerts, nil
}

func (s *weatherService) cleanLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", &domain.ServiceError{
			Code:    domain.ErrCodeInvalidLocation,
			Message: "location must not be empty",
		}
	}
	if len(location) > 100 {
		return "", &domain.ServiceError{
			Code:    domain.ErrCodeInvalidLocation,
			Message: "location is too long",
		}
	}
	return location, nil
}

// resolve accepts either a "lat,lon" pair or a place name; names go through
// the geocoder.
func (s *weatherService) resolve(ctx context.Context, location string) (domain.Coordinates, error) {
	if coords, ok := parseLatLon(location); ok {
		return coords, nil
	}

	if s.geocoder == nil {
		return domain.Coordinates{}, &domain.ServiceError{
			Code:    domain.ErrCodeInvalidLocation,
			Message: fmt.Sprintf("cannot resolve %q: no geocoder configured, use \"lat,lon\"", location),
		}
	}

	coords, err := s.geocoder.Resolve(ctx, location)
	if err != nil {
		s.logger.Error("failed to resolve location",
			zap.String("location", location),
			zap.Error(err))
		return domain.Coordinates{}, &domain.ServiceError{
			Code:    domain.ErrCodeInvalidLocation,
			Message: fmt.Sprintf("unknown location %q", location),
			Cause:   err,
		}
	}
	return coords, nil
}

func parseLatLon(location string) (domain.Coordinates, bool) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return domain.Coordinates{}, false
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 {
		return domain.Coordinates{}, false
	}

	return domain.Coordinates{
		Latitude:  lat,
		Longitude: convert.NormalizeLongitude(lon),
	}, true
}

func (s *weatherService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (s *weatherService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache weather data", zap.Error(err))
	}
}
