package entity

import "github.com/shopspring/decimal"

// HistoricalDataPoint is one day of the output series. Value is the wallet's
// total USD valuation at end of day, rounded to cents.
type HistoricalDataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FlowEvent is a single signed balance change for one asset, as reported by the
// flow source. Amount is in the asset's base units; positive for deposits,
// negative for withdrawals. The flow ledger applies the decimal shift.
type FlowEvent struct {
	AssetType string
	Amount    decimal.Decimal
	Date      string
}

// DailyFlows accumulates net balance deltas per calendar day per feed id.
type DailyFlows map[string]map[string]decimal.Decimal

// Add accumulates a delta for (date, feedID), creating the inner map on first use.
func (f DailyFlows) Add(date, feedID string, delta decimal.Decimal) {
	day, ok := f[date]
	if !ok {
		day = make(map[string]decimal.Decimal)
		f[date] = day
	}
	day[feedID] = day[feedID].Add(delta)
}

// PriceSeries is a sparse map from calendar date to USD price for one asset.
type PriceSeries map[string]float64
