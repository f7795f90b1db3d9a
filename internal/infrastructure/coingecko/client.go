package coingecko

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aptoscope/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Platform identifier of the chain in CoinGecko's coin catalogue.
const aptosPlatformID = "aptos"

const catalogueCacheKey = "platform_mapping"

// Client is the primary market-data provider. It implements port.PriceProvider
// for every feed id and port.AssetCatalogue for contract-to-feed-id resolution.
type Client struct {
	client         *fasthttp.Client
	baseURL        string
	apiKey         string
	timeout        time.Duration
	logger         *zap.Logger
	catalogueCache *cache.Cache
}

// NewClient creates a new CoinGecko client. The platform catalogue is cached
// for catalogueTTL since the full coin list is large and changes rarely.
func NewClient(baseURL, apiKey string, timeout time.Duration, catalogueTTL time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client:         &fasthttp.Client{},
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		timeout:        timeout,
		logger:         logger.Named("CoinGeckoClient"),
		catalogueCache: cache.New(catalogueTTL, 10*time.Minute),
	}
}

// Name implements port.PriceProvider.
func (c *Client) Name() string {
	return "coingecko"
}

// Supports implements port.PriceProvider. CoinGecko covers the whole catalogue.
func (c *Client) Supports(string) bool {
	return true
}

// GetDailySeries fetches the daily price series for the last `days` days. The
// chart endpoint may return several points per day near "now"; the last point
// per calendar day wins.
func (c *Client) GetDailySeries(ctx context.Context, feedID string, days int) (entity.PriceSeries, error) {
	requestURL := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily", c.baseURL, feedID, days)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var chart marketChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		c.logger.Error("Failed to unmarshal market chart response",
			zap.String("feedID", feedID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal market chart for %s: %w", feedID, err)
	}

	series := make(entity.PriceSeries, len(chart.Prices))
	for _, point := range chart.Prices {
		if len(point) < 2 {
			continue
		}
		date := time.UnixMilli(int64(point[0])).UTC().Format(entity.DateLayout)
		series[date] = point[1]
	}

	c.logger.Debug("Fetched daily price series",
		zap.String("feedID", feedID),
		zap.Int("days", days),
		zap.Int("pointCount", len(series)))
	return series, nil
}

// GetCurrentPrice fetches the live USD price for a single feed id.
func (c *Client) GetCurrentPrice(ctx context.Context, feedID string) (float64, error) {
	requestURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, feedID)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return 0, err
	}

	var prices simplePriceResponse
	if err := json.Unmarshal(body, &prices); err != nil {
		return 0, fmt.Errorf("failed to unmarshal simple price for %s: %w", feedID, err)
	}

	price, ok := prices[feedID]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no live USD price for %s", feedID)
	}
	return price, nil
}

// GetPlatformMapping implements port.AssetCatalogue: lowercase contract address
// on the chain's platform to CoinGecko feed id.
func (c *Client) GetPlatformMapping(ctx context.Context) (map[string]string, error) {
	if cached, found := c.catalogueCache.Get(catalogueCacheKey); found {
		if mapping, ok := cached.(map[string]string); ok {
			return mapping, nil
		}
		c.logger.Warn("Catalogue cache entry has unexpected type, refetching")
	}

	requestURL := fmt.Sprintf("%s/coins/list?include_platform=true", c.baseURL)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var entries []coinListEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		c.logger.Error("Failed to unmarshal coin list response", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal coin list: %w", err)
	}

	mapping := make(map[string]string)
	for _, entry := range entries {
		contract := entry.Platforms[aptosPlatformID]
		if contract == "" {
			continue
		}
		mapping[strings.ToLower(contract)] = entry.ID
	}

	c.catalogueCache.Set(catalogueCacheKey, mapping, cache.DefaultExpiration)
	c.logger.Info("Refreshed platform catalogue",
		zap.Int("totalCoins", len(entries)),
		zap.Int("chainCoins", len(mapping)))
	return mapping, nil
}

// get executes a GET request and returns the response body on HTTP 200.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to CoinGecko", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to CoinGecko (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("CoinGecko API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("CoinGecko request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
