package port

import (
	"context"

	"aptoscope/internal/domain/entity"
)

// PriceProvider is one upstream source of USD prices. Providers are tried in a
// fixed priority order; each returns a typed sparse series or an explicit
// "no data" (empty series, nil error) so the caller never branches on response
// shape.
type PriceProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Supports reports whether the provider can price the given feed id at all.
	// Unsupported feeds are skipped without a network call.
	Supports(feedID string) bool

	// GetDailySeries returns up to one price per calendar day for the last
	// `days` days. Sparse: missing days are simply absent.
	GetDailySeries(ctx context.Context, feedID string, days int) (entity.PriceSeries, error)

	// GetCurrentPrice returns the live price, or an error when unavailable.
	GetCurrentPrice(ctx context.Context, feedID string) (float64, error)
}

// PriceService resolves prices across the ordered provider chain, with caching
// and bounded concurrency. All methods degrade to empty results on failure.
type PriceService interface {
	// GetDailySeries returns the merged daily series for every requested asset.
	// Assets whose every provider failed map to an empty series.
	GetDailySeries(ctx context.Context, feedIDs []string, days int) map[string]entity.PriceSeries

	// GetCurrentPrices returns live prices for the feed ids it could price.
	GetCurrentPrices(ctx context.Context, feedIDs []string) map[string]float64
}

// AssetCatalogue maps chain-specific contract addresses to price-feed ids.
type AssetCatalogue interface {
	// GetPlatformMapping returns the contract-address (lowercase) to feed-id
	// table. Fetched at most once per request; implementations may cache it.
	GetPlatformMapping(ctx context.Context) (map[string]string, error)
}
