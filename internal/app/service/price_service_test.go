package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func buildPriceService(providers ...port.PriceProvider) port.PriceService {
	return NewPriceService(providers, time.Minute, rate.NewLimiter(rate.Inf, 1), 2, time.Second, testLogger{})
}

func TestPriceService_ProviderOrder(t *testing.T) {
	primary := &mockProvider{
		name:   "primary",
		series: map[string]entity.PriceSeries{"aptos": {"2025-06-01": 8.5}},
	}
	fallback := &mockProvider{
		name:   "fallback",
		series: map[string]entity.PriceSeries{"aptos": {"2025-06-01": 99}},
	}
	svc := buildPriceService(primary, fallback)

	out := svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	require.Contains(t, out, "aptos")
	assert.Equal(t, 8.5, out["aptos"]["2025-06-01"])
	assert.Equal(t, 1, primary.seriesCalls)
	assert.Zero(t, fallback.seriesCalls, "fallback must not be called when primary succeeds")
}

func TestPriceService_FallsBackOnError(t *testing.T) {
	primary := &mockProvider{name: "primary", seriesErr: errors.New("upstream 500")}
	fallback := &mockProvider{
		name:   "fallback",
		series: map[string]entity.PriceSeries{"aptos": {"2025-06-01": 8.1}},
	}
	svc := buildPriceService(primary, fallback)

	out := svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	assert.Equal(t, 8.1, out["aptos"]["2025-06-01"])
	assert.Equal(t, 1, primary.seriesCalls)
	assert.Equal(t, 1, fallback.seriesCalls)
}

func TestPriceService_SkipsUnsupportedProvider(t *testing.T) {
	anchorOnly := &mockProvider{
		name:     "anchor-only",
		supports: func(feedID string) bool { return feedID == "aptos" },
		series:   map[string]entity.PriceSeries{"aptos": {"2025-06-01": 8.1}},
	}
	svc := buildPriceService(anchorOnly)

	out := svc.GetDailySeries(context.Background(), []string{"aptos", "tether"}, 7)
	assert.NotEmpty(t, out["aptos"])
	assert.Empty(t, out["tether"], "unsupported feed must degrade to an empty series")
	assert.Equal(t, 1, anchorOnly.seriesCalls, "unsupported feed must not reach the provider")
}

func TestPriceService_EmptySeriesOnTotalFailure(t *testing.T) {
	broken := &mockProvider{name: "broken", seriesErr: errors.New("down")}
	svc := buildPriceService(broken)

	out := svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	require.Contains(t, out, "aptos")
	assert.Empty(t, out["aptos"])
}

func TestPriceService_CachesSeries(t *testing.T) {
	provider := &mockProvider{
		name:   "primary",
		series: map[string]entity.PriceSeries{"aptos": {"2025-06-01": 8.5}},
	}
	svc := buildPriceService(provider)

	_ = svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	_ = svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	assert.Equal(t, 1, provider.seriesCalls, "second fetch must be served from cache")

	// A different day range is a different cache entry.
	_ = svc.GetDailySeries(context.Background(), []string{"aptos"}, 30)
	assert.Equal(t, 2, provider.seriesCalls)
}

func TestPriceService_FailedFetchNotCached(t *testing.T) {
	provider := &mockProvider{name: "flaky", seriesErr: errors.New("down")}
	svc := buildPriceService(provider)

	_ = svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	provider.seriesErr = nil
	provider.series = map[string]entity.PriceSeries{"aptos": {"2025-06-01": 8.5}}

	out := svc.GetDailySeries(context.Background(), []string{"aptos"}, 7)
	assert.Equal(t, 8.5, out["aptos"]["2025-06-01"], "recovery must not be masked by a cached failure")
}

func TestPriceService_CurrentPrices(t *testing.T) {
	primary := &mockProvider{name: "primary", priceErr: errors.New("down")}
	fallback := &mockProvider{
		name:  "fallback",
		price: map[string]float64{"aptos": 8.42},
	}
	svc := buildPriceService(primary, fallback)

	out := svc.GetCurrentPrices(context.Background(), []string{"aptos", "tether"})
	assert.Equal(t, 8.42, out["aptos"])
	_, ok := out["tether"]
	assert.False(t, ok, "unpriced assets must be absent, not zero")
}
