package service

import (
	"context"
	"time"

	"aptoscope/internal/domain/entity"
)

// testLogger satisfies port.Logger and discards everything.
type testLogger struct{}

func (testLogger) Info(string, ...any)  {}
func (testLogger) Debug(string, ...any) {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

type mockCatalogue struct {
	mapping map[string]string
	err     error
	calls   int
}

func (m *mockCatalogue) GetPlatformMapping(_ context.Context) (map[string]string, error) {
	m.calls++
	return m.mapping, m.err
}

type mockBalanceSource struct {
	balances []entity.AssetBalance
	err      error
}

func (m *mockBalanceSource) GetBalances(_ context.Context, _ string) ([]entity.AssetBalance, error) {
	return m.balances, m.err
}

type mockFlowSource struct {
	events     []entity.FlowEvent
	err        error
	gotTypes   []string
	gotAddress string
}

func (m *mockFlowSource) GetFlows(_ context.Context, address string, assetTypes []string, _, _ time.Time) ([]entity.FlowEvent, error) {
	m.gotAddress = address
	m.gotTypes = assetTypes
	return m.events, m.err
}

// mockProvider is a scriptable PriceProvider.
type mockProvider struct {
	name        string
	supports    func(feedID string) bool
	series      map[string]entity.PriceSeries
	seriesErr   error
	price       map[string]float64
	priceErr    error
	seriesCalls int
	priceCalls  int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Supports(feedID string) bool {
	if m.supports == nil {
		return true
	}
	return m.supports(feedID)
}

func (m *mockProvider) GetDailySeries(_ context.Context, feedID string, _ int) (entity.PriceSeries, error) {
	m.seriesCalls++
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	return m.series[feedID], nil
}

func (m *mockProvider) GetCurrentPrice(_ context.Context, feedID string) (float64, error) {
	m.priceCalls++
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return m.price[feedID], nil
}

// mockPriceService feeds the history service fixed price data.
type mockPriceService struct {
	series map[string]entity.PriceSeries
	live   map[string]float64
}

func (m *mockPriceService) GetDailySeries(_ context.Context, feedIDs []string, _ int) map[string]entity.PriceSeries {
	out := make(map[string]entity.PriceSeries, len(feedIDs))
	for _, id := range feedIDs {
		if s, ok := m.series[id]; ok {
			out[id] = s
		} else {
			out[id] = entity.PriceSeries{}
		}
	}
	return out
}

func (m *mockPriceService) GetCurrentPrices(_ context.Context, feedIDs []string) map[string]float64 {
	out := make(map[string]float64, len(feedIDs))
	for _, id := range feedIDs {
		if p, ok := m.live[id]; ok {
			out[id] = p
		}
	}
	return out
}
