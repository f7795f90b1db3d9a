package port

import (
	"context"
	"time"

	"aptoscope/internal/domain/entity"
)

// BalanceSource provides the wallet's current per-asset balances with metadata.
// A failure here is fatal for the request: every downstream step depends on it.
type BalanceSource interface {
	GetBalances(ctx context.Context, address string) ([]entity.AssetBalance, error)
}

// FlowSource provides signed balance-changing events for an address, restricted
// to the given on-chain asset types and time window. Optional collaborator: the
// engine degrades to flat-balance mode when it is unavailable.
type FlowSource interface {
	GetFlows(ctx context.Context, address string, assetTypes []string, start, end time.Time) ([]entity.FlowEvent, error)
}

// HistoryService reconstructs a wallet's daily USD valuation series.
type HistoryService interface {
	// GetHistory returns one point per calendar day in the window, ascending,
	// values rounded to cents. An empty wallet yields an all-zero series, not an
	// error; only a balance-source failure is surfaced.
	GetHistory(ctx context.Context, address string, timeframe entity.Timeframe) ([]entity.HistoricalDataPoint, error)

	// GetCurrentHoldings returns the wallet's resolved holdings priced live.
	GetCurrentHoldings(ctx context.Context, address string) ([]entity.AssetValuation, error)
}
