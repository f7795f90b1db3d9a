package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"
	"aptoscope/internal/pkg/metrics"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// PriceServiceImpl resolves daily and live prices across an ordered provider
// chain. Per-asset fan-out is bounded, each outbound call gets its own timeout,
// and daily series are cached by (feedID, dayRange) with a short TTL. Every
// failure degrades to "no data"; this service never returns an error.
type PriceServiceImpl struct {
	providers     []port.PriceProvider
	seriesCache   *cache.Cache
	limiter       *rate.Limiter
	maxConcurrent int
	callTimeout   time.Duration
	logger        port.Logger
}

// NewPriceService creates a new PriceServiceImpl. Providers are consulted in
// slice order; the first one returning a non-empty series wins.
func NewPriceService(
	providers []port.PriceProvider,
	cacheTTL time.Duration,
	limiter *rate.Limiter,
	maxConcurrent int,
	callTimeout time.Duration,
	logger port.Logger,
) port.PriceService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &PriceServiceImpl{
		providers:     providers,
		seriesCache:   cache.New(cacheTTL, 10*time.Minute),
		limiter:       limiter,
		maxConcurrent: maxConcurrent,
		callTimeout:   callTimeout,
		logger:        logger,
	}
}

// GetDailySeries fetches the daily series for every requested asset
// concurrently. Assets whose every provider failed map to an empty series so
// downstream valuation can proceed.
func (s *PriceServiceImpl) GetDailySeries(ctx context.Context, feedIDs []string, days int) map[string]entity.PriceSeries {
	results := make(map[string]entity.PriceSeries, len(feedIDs))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrent)

	for _, feedID := range feedIDs {
		id := feedID
		eg.Go(func() error {
			series := s.dailySeriesForAsset(egCtx, id, days)
			mu.Lock()
			results[id] = series
			mu.Unlock()
			return nil
		})
	}

	// Goroutines always return nil; Wait only surfaces context cancellation.
	if err := eg.Wait(); err != nil {
		s.logger.Warn("Price series fan-out interrupted", "error", err)
	}
	return results
}

// dailySeriesForAsset checks the cache, then walks the provider chain.
func (s *PriceServiceImpl) dailySeriesForAsset(ctx context.Context, feedID string, days int) entity.PriceSeries {
	cacheKey := fmt.Sprintf("%s_%d", feedID, days)
	if cached, found := s.seriesCache.Get(cacheKey); found {
		if series, ok := cached.(entity.PriceSeries); ok {
			metrics.PriceCacheHits.WithLabelValues("hit").Inc()
			return series
		}
		s.logger.Warn("Series found in cache but has unexpected type", "cacheKey", cacheKey)
	}
	metrics.PriceCacheHits.WithLabelValues("miss").Inc()

	for _, provider := range s.providers {
		if !provider.Supports(feedID) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("Rate limiter wait aborted", "feedId", feedID, "provider", provider.Name(), "error", err)
			return entity.PriceSeries{}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		series, err := provider.GetDailySeries(callCtx, feedID, days)
		cancel()

		if err != nil {
			metrics.PriceProviderFailures.WithLabelValues(provider.Name(), "daily_series").Inc()
			s.logger.Warn("Provider failed to deliver daily series, trying next",
				"feedId", feedID, "provider", provider.Name(), "days", days, "error", err)
			continue
		}
		if len(series) == 0 {
			s.logger.Debug("Provider returned no data for daily series, trying next",
				"feedId", feedID, "provider", provider.Name(), "days", days)
			continue
		}

		s.seriesCache.Set(cacheKey, series, cache.DefaultExpiration)
		return series
	}

	s.logger.Warn("No provider could deliver a daily series, asset will value at zero for uncovered days",
		"feedId", feedID, "days", days)
	return entity.PriceSeries{}
}

// GetCurrentPrices fetches live prices for the given assets concurrently.
// Assets that could not be priced are absent from the result; live prices are
// never cached.
func (s *PriceServiceImpl) GetCurrentPrices(ctx context.Context, feedIDs []string) map[string]float64 {
	prices := make(map[string]float64, len(feedIDs))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrent)

	for _, feedID := range feedIDs {
		id := feedID
		eg.Go(func() error {
			price, ok := s.currentPriceForAsset(egCtx, id)
			if ok {
				mu.Lock()
				prices[id] = price
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		s.logger.Warn("Live price fan-out interrupted", "error", err)
	}
	return prices
}

func (s *PriceServiceImpl) currentPriceForAsset(ctx context.Context, feedID string) (float64, bool) {
	for _, provider := range s.providers {
		if !provider.Supports(feedID) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("Rate limiter wait aborted", "feedId", feedID, "provider", provider.Name(), "error", err)
			return 0, false
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		price, err := provider.GetCurrentPrice(callCtx, feedID)
		cancel()

		if err != nil {
			metrics.PriceProviderFailures.WithLabelValues(provider.Name(), "current_price").Inc()
			s.logger.Warn("Provider failed to deliver live price, trying next",
				"feedId", feedID, "provider", provider.Name(), "error", err)
			continue
		}
		if price > 0 {
			return price, true
		}
	}
	return 0, false
}
