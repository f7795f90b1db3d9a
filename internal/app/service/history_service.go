package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"
	"aptoscope/internal/infrastructure/configloader"
	"aptoscope/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

// HistoryServiceImpl implements port.HistoryService: it reconciles current
// balances, historical per-asset flows and daily prices into one
// internally-consistent USD valuation series.
//
// Only a balance-source failure is fatal. Flow and price failures degrade the
// affected asset or day and the request still succeeds.
type HistoryServiceImpl struct {
	balanceSource port.BalanceSource
	resolver      *AssetResolver
	flowLedger    *FlowLedger
	priceSvc      port.PriceService
	cfg           *configloader.Config
	logger        port.Logger
	now           func() time.Time
}

// NewHistoryService creates a new HistoryServiceImpl.
func NewHistoryService(
	balanceSource port.BalanceSource,
	resolver *AssetResolver,
	flowLedger *FlowLedger,
	priceSvc port.PriceService,
	cfg *configloader.Config,
	logger port.Logger,
) *HistoryServiceImpl {
	return &HistoryServiceImpl{
		balanceSource: balanceSource,
		resolver:      resolver,
		flowLedger:    flowLedger,
		priceSvc:      priceSvc,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// GetHistory reconstructs the wallet's daily USD valuation for the window.
func (s *HistoryServiceImpl) GetHistory(ctx context.Context, address string, timeframe entity.Timeframe) ([]entity.HistoricalDataPoint, error) {
	days := timeframe.Days()
	if days <= 0 {
		return nil, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	assets, err := s.fetchResolvedAssets(ctx, address)
	if err != nil {
		return nil, err
	}

	dates := s.targetDates(days)

	if len(assets) == 0 {
		s.logger.Info("Wallet has no priceable holdings, returning zero series",
			"address", address, "timeframe", string(timeframe))
		return zeroSeries(dates), nil
	}

	feedIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		feedIDs = append(feedIDs, a.FeedID)
	}

	// Prices, flows and live prices are independent upstreams; fetch them in
	// parallel. Each branch owns its own degradation, so the group never fails.
	var (
		priceSeries map[string]entity.PriceSeries
		flows       entity.DailyFlows
		livePrices  map[string]float64
		wg          sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		priceSeries = s.priceSvc.GetDailySeries(ctx, feedIDs, days)
	}()
	go func() {
		defer wg.Done()
		flows = s.collectFlows(ctx, address, assets, dates)
	}()
	go func() {
		defer wg.Done()
		livePrices = s.priceSvc.GetCurrentPrices(ctx, feedIDs)
	}()
	wg.Wait()

	balancesByDate := reconstructBalances(assets, flows, dates)

	series := make([]entity.HistoricalDataPoint, 0, len(dates))
	for i, date := range dates {
		value := s.valueAtDate(assets, balancesByDate[i], priceSeries, livePrices, dates, i)
		series = append(series, entity.HistoricalDataPoint{Date: date, Value: value})
	}

	series = s.injectLiveSnapshot(series, assets, livePrices, priceSeries)

	s.logger.Info("Computed portfolio history",
		"address", address,
		"timeframe", string(timeframe),
		"assetCount", len(assets),
		"pointCount", len(series))
	return series, nil
}

// GetCurrentHoldings returns the wallet's resolved holdings priced live.
func (s *HistoryServiceImpl) GetCurrentHoldings(ctx context.Context, address string) ([]entity.AssetValuation, error) {
	assets, err := s.fetchResolvedAssets(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return []entity.AssetValuation{}, nil
	}

	feedIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		feedIDs = append(feedIDs, a.FeedID)
	}
	livePrices := s.priceSvc.GetCurrentPrices(ctx, feedIDs)

	holdings := make([]entity.AssetValuation, 0, len(assets))
	for _, a := range assets {
		price := livePrices[a.FeedID]
		holdings = append(holdings, entity.AssetValuation{
			FeedID:   a.FeedID,
			Symbol:   a.Symbol,
			Balance:  a.Balance.String(),
			PriceUSD: price,
			ValueUSD: utils.RoundToCents(utils.MulPrice(a.Balance, price)),
		})
	}
	return holdings, nil
}

// fetchResolvedAssets loads current balances (fatal on failure) and resolves
// them to priceable assets.
func (s *HistoryServiceImpl) fetchResolvedAssets(ctx context.Context, address string) ([]entity.ResolvedAsset, error) {
	balCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.History.BalanceFetchTimeoutMillis)*time.Millisecond)
	defer cancel()

	balances, err := s.balanceSource.GetBalances(balCtx, address)
	if err != nil {
		s.logger.Error("Balance source failed, cannot reconstruct history", "address", address, "error", err)
		return nil, fmt.Errorf("failed to fetch current balances: %w", err)
	}

	return s.resolver.Resolve(ctx, balances), nil
}

// collectFlows runs the flow ledger unless flows are disabled; any failure
// yields empty flows, which downstream treats as flat-balance mode.
func (s *HistoryServiceImpl) collectFlows(ctx context.Context, address string, assets []entity.ResolvedAsset, dates []string) entity.DailyFlows {
	if s.cfg.History.DisableFlows {
		s.logger.Debug("Flow reconstruction disabled by config, using flat-balance mode", "address", address)
		return entity.DailyFlows{}
	}

	start, err := time.Parse(entity.DateLayout, dates[0])
	if err != nil {
		s.logger.Error("Invalid window start date", "date", dates[0], "error", err)
		return entity.DailyFlows{}
	}
	end := s.now().UTC()

	flows, err := s.flowLedger.Collect(ctx, address, assets, start, end)
	if err != nil {
		s.logger.Warn("Flow data unavailable, falling back to flat-balance mode", "address", address, "error", err)
		return entity.DailyFlows{}
	}
	return flows
}

// reconstructBalances derives each asset's balance for every target date.
//
// The start-of-window balance solves the reconciliation equation
// currentBalance == startBalance + sum of all net deltas in the window, then the
// walk applies each date's flow before recording that date's end-of-day
// snapshot. An asset with no flows stays flat at its current balance.
func reconstructBalances(assets []entity.ResolvedAsset, flows entity.DailyFlows, dates []string) []map[string]decimal.Decimal {
	totalFlow := make(map[string]decimal.Decimal, len(assets))
	for _, day := range flows {
		for feedID, delta := range day {
			totalFlow[feedID] = totalFlow[feedID].Add(delta)
		}
	}

	running := make(map[string]decimal.Decimal, len(assets))
	for _, a := range assets {
		running[a.FeedID] = a.Balance.Sub(totalFlow[a.FeedID])
	}

	snapshots := make([]map[string]decimal.Decimal, 0, len(dates))
	for _, date := range dates {
		if dayFlows, ok := flows[date]; ok {
			for feedID, delta := range dayFlows {
				running[feedID] = running[feedID].Add(delta)
			}
		}
		snapshot := make(map[string]decimal.Decimal, len(running))
		for feedID, bal := range running {
			snapshot[feedID] = bal
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// valueAtDate prices every asset's balance on one date and sums, rounding to
// cents. Price fallback order: exact date, nearest earlier date, live price,
// zero. Never a future price.
func (s *HistoryServiceImpl) valueAtDate(
	assets []entity.ResolvedAsset,
	balances map[string]decimal.Decimal,
	priceSeries map[string]entity.PriceSeries,
	livePrices map[string]float64,
	dates []string,
	dateIdx int,
) float64 {
	total := decimal.Zero
	for _, a := range assets {
		balance := balances[a.FeedID]
		if balance.IsZero() {
			continue
		}

		price, found := lookupPrice(priceSeries[a.FeedID], dates[dateIdx])
		if !found {
			price, found = livePrices[a.FeedID]
		}
		if !found {
			s.logger.Debug("No price obtainable, asset contributes nothing this day",
				"feedId", a.FeedID, "date", dates[dateIdx])
			continue
		}
		total = total.Add(utils.MulPrice(balance, price))
	}
	return utils.RoundToCents(total)
}

// maxPriceLookbackDays bounds the backward scan for a missing price. Provider
// series cover the window plus at most a day of slack.
const maxPriceLookbackDays = 92

// lookupPrice returns the price for the date, or the nearest earlier date with
// a known price. It never looks forward: valuing a day with a later price would
// leak information backward in time.
func lookupPrice(series entity.PriceSeries, date string) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	if price, ok := series[date]; ok {
		return price, true
	}

	day, err := time.Parse(entity.DateLayout, date)
	if err != nil {
		return 0, false
	}
	for i := 1; i <= maxPriceLookbackDays; i++ {
		earlier := day.AddDate(0, 0, -i).Format(entity.DateLayout)
		if price, ok := series[earlier]; ok {
			return price, true
		}
	}
	return 0, false
}

// injectLiveSnapshot recomputes the final (today) data point from live prices
// and current balances, but only when the anchor asset's live price was
// confidently obtained. Without it the historical value stands: the injector
// never overwrites with a less-trustworthy number.
func (s *HistoryServiceImpl) injectLiveSnapshot(
	series []entity.HistoricalDataPoint,
	assets []entity.ResolvedAsset,
	livePrices map[string]float64,
	priceSeries map[string]entity.PriceSeries,
) []entity.HistoricalDataPoint {
	if _, anchorPriced := livePrices[entity.AptosFeedID]; !anchorPriced {
		s.logger.Debug("Anchor asset has no live price, keeping historical value for today")
		return series
	}

	today := s.now().UTC().Format(entity.DateLayout)
	total := decimal.Zero
	for _, a := range assets {
		price, ok := livePrices[a.FeedID]
		if !ok {
			// Fall back to the asset's own historical chain for today.
			price, ok = lookupPrice(priceSeries[a.FeedID], today)
			if !ok {
				continue
			}
		}
		total = total.Add(utils.MulPrice(a.Balance, price))
	}
	livePoint := entity.HistoricalDataPoint{Date: today, Value: utils.RoundToCents(total)}

	if len(series) > 0 && series[len(series)-1].Date == today {
		series[len(series)-1] = livePoint
		return series
	}
	return append(series, livePoint)
}

// targetDates returns one date per calendar day in the window, ascending,
// ending today (UTC).
func (s *HistoryServiceImpl) targetDates(days int) []string {
	today := s.now().UTC()
	dates := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, today.AddDate(0, 0, -i).Format(entity.DateLayout))
	}
	return dates
}

// zeroSeries builds an all-zero series, one point per target date.
func zeroSeries(dates []string) []entity.HistoricalDataPoint {
	series := make([]entity.HistoricalDataPoint, 0, len(dates))
	for _, date := range dates {
		series = append(series, entity.HistoricalDataPoint{Date: date, Value: 0})
	}
	return series
}
