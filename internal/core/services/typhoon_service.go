// Package services holds the aggregation logic that sits between the REST
// surface and the provider adapters. Services own fallback ordering,
// deduplication, enrichment, and caching; adapters own wire formats.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
	"github.com/bayanforecast/stormwatch/internal/core/signal"
	"github.com/bayanforecast/stormwatch/internal/core/track"
)

const (
	stormsCacheKey = "storms:active"

	// providerTimeout bounds each provider attempt so a slow upstream
	// cannot consume the whole request deadline before fallback runs.
	providerTimeout = 10 * time.Second

	// sightingTimeout bounds the background sighting write.
	sightingTimeout = 5 * time.Second
)

type typhoonService struct {
	providers []ports.StormProvider
	cache     ports.CacheService
	repo      ports.StormRepository
	region    signal.Region
	cacheTTL  time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewTyphoonService builds the storm aggregator. Providers are consulted in
// slice order; the first one returning a non-empty storm list wins, so order
// encodes data-quality preference. repo may be nil when sighting history is
// disabled.
func NewTyphoonService(
	providers []ports.StormProvider,
	cache ports.CacheService,
	repo ports.StormRepository,
	region signal.Region,
	cacheTTL time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) ports.TyphoonService {
	return &typhoonService{
		providers: providers,
		cache:     cache,
		repo:      repo,
		region:    region,
		cacheTTL:  cacheTTL,
		clock:     clock,
		logger:    logger,
	}
}

func (s *typhoonService) ActiveStorms(ctx context.Context) ([]domain.Storm, error) {
	if cached := s.cachedStorms(ctx); cached != nil {
		return cached, nil
	}

	storms := s.fetchFromProviders(ctx)
	storms = MergeStorms(storms)

	now := s.clock.Now().UTC()
	for i := range storms {
		s.enrich(&storms[i], now)
	}

	s.cacheStorms(ctx, storms)
	s.recordSightings(storms)

	return storms, nil
}

// fetchFromProviders walks the priority list and returns the first non-empty
// result. A provider error or an empty list both mean "try the next one";
// when every provider comes up empty the result is an empty slice, which is
// a valid "no active storms" answer rather than an error.
func (s *typhoonService) fetchFromProviders(ctx context.Context) []domain.Storm {
	for _, provider := range s.providers {
		pctx, cancel := context.WithTimeout(ctx, providerTimeout)
		storms, err := provider.FetchStorms(pctx)
		cancel()

		if err != nil {
			s.logger.Warn("storm provider failed, trying next",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		if len(storms) == 0 {
			s.logger.Debug("storm provider reported no storms",
				zap.String("provider", provider.Name()))
			continue
		}

		s.logger.Info("storms retrieved",
			zap.String("provider", provider.Name()),
			zap.Int("count", len(storms)))
		return storms
	}

	return []domain.Storm{}
}

// enrich attaches the derived fields the providers cannot supply: the warning
// signal for the configured region and an extrapolated track when the
// provider gave none.
func (s *typhoonService) enrich(storm *domain.Storm, now time.Time) {
	storm.SignalLevel = signal.Classify(*storm, s.region)
	if len(storm.ForecastTrack) == 0 {
		storm.ForecastTrack = track.Extrapolate(*storm)
	}
	if storm.LastUpdated.IsZero() {
		storm.LastUpdated = now
	}
}

func (s *typhoonService) cachedStorms(ctx context.Context) []domain.Storm {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, stormsCacheKey)
	if err != nil || raw == nil {
		return nil
	}
	var storms []domain.Storm
	if err := json.Unmarshal(raw, &storms); err != nil {
		s.logger.Warn("discarding unreadable storm cache entry", zap.Error(err))
		return nil
	}
	return storms
}

func (s *typhoonService) cacheStorms(ctx context.Context, storms []domain.Storm) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(storms)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, stormsCacheKey, raw, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache storms", zap.Error(err))
	}
}

// recordSightings writes storm history off the request path. Failures are
// logged and never surface to callers.
func (s *typhoonService) recordSightings(storms []domain.Storm) {
	if s.repo == nil || len(storms) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sightingTimeout)
		defer cancel()
		for _, storm := range storms {
			if err := s.repo.RecordSighting(ctx, storm); err != nil {
				s.logger.Warn("failed to record storm sighting",
					zap.String("storm", storm.Name),
					zap.Error(err))
			}
		}
	}()
}
