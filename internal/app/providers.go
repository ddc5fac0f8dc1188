package app

import (
	"context"
	"time"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
	"github.com/bayanforecast/stormwatch/internal/observability"
)

// instrumentedStormProvider records fetch duration and storm counts per
// provider. It sits outside the circuit breaker so open-breaker rejections
// show up in the metrics too.
type instrumentedStormProvider struct {
	provider  ports.StormProvider
	telemetry *observability.Telemetry
}

func instrumentStormProvider(provider ports.StormProvider, telemetry *observability.Telemetry) ports.StormProvider {
	if telemetry == nil {
		return provider
	}

	return &instrumentedStormProvider{
		provider:  provider,
		telemetry: telemetry,
	}
}

func (p *instrumentedStormProvider) Name() string {
	return p.provider.Name()
}

func (p *instrumentedStormProvider) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	start := time.Now()
	storms, err := p.provider.FetchStorms(ctx)

	p.telemetry.RecordProviderFetch(ctx, p.provider.Name(), len(storms), time.Since(start), err)

	return storms, err
}
