package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aptoscope/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the secondary price provider. It only prices the chain's native
// coin, via daily klines on a dollar-pegged pair (candle close stands in for the
// daily price, USDT treated as USD). It implements port.PriceProvider.
type Client struct {
	client       *fasthttp.Client
	baseURL      string
	anchorSymbol string
	timeout      time.Duration
	logger       *zap.Logger
}

// tickerPriceResponse maps /api/v3/ticker/price.
type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewClient creates a new Binance klines client for the anchor trading pair.
func NewClient(baseURL, anchorSymbol string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client:       &fasthttp.Client{},
		baseURL:      strings.TrimRight(baseURL, "/"),
		anchorSymbol: anchorSymbol,
		timeout:      timeout,
		logger:       logger.Named("BinanceClient"),
	}
}

// Name implements port.PriceProvider.
func (c *Client) Name() string {
	return "binance"
}

// Supports implements port.PriceProvider: only the native coin trades on the
// configured pair.
func (c *Client) Supports(feedID string) bool {
	return feedID == entity.AptosFeedID
}

// GetDailySeries fetches the last `days` daily candles and keys each close by
// the candle's open date.
func (c *Client) GetDailySeries(ctx context.Context, feedID string, days int) (entity.PriceSeries, error) {
	if !c.Supports(feedID) {
		return entity.PriceSeries{}, nil
	}

	requestURL := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1d&limit=%d", c.baseURL, c.anchorSymbol, days)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	// Klines are heterogenous arrays: [openTimeMillis, "open", "high", "low",
	// "close", "volume", closeTimeMillis, ...].
	var klines [][]interface{}
	if err := json.Unmarshal(body, &klines); err != nil {
		c.logger.Error("Failed to unmarshal klines response",
			zap.String("symbol", c.anchorSymbol),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal klines for %s: %w", c.anchorSymbol, err)
	}

	series := make(entity.PriceSeries, len(klines))
	for _, k := range klines {
		if len(k) < 5 {
			continue
		}
		openMillis, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := k[4].(string)
		if !ok {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			c.logger.Warn("Skipping kline with unparseable close price",
				zap.String("symbol", c.anchorSymbol),
				zap.String("close", closeStr))
			continue
		}
		date := time.UnixMilli(int64(openMillis)).UTC().Format(entity.DateLayout)
		series[date] = closePrice
	}

	c.logger.Debug("Fetched daily candles",
		zap.String("symbol", c.anchorSymbol),
		zap.Int("candleCount", len(series)))
	return series, nil
}

// GetCurrentPrice fetches the live pair price.
func (c *Client) GetCurrentPrice(ctx context.Context, feedID string) (float64, error) {
	if !c.Supports(feedID) {
		return 0, fmt.Errorf("feed %s not supported by binance provider", feedID)
	}

	requestURL := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, c.anchorSymbol)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return 0, err
	}

	var ticker tickerPriceResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ticker price for %s: %w", c.anchorSymbol, err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid ticker price %q for %s", ticker.Price, c.anchorSymbol)
	}
	return price, nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to Binance", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to Binance (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Binance API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("binance request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
