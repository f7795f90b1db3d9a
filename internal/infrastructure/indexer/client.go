package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aptoscope/internal/domain/entity"
	"aptoscope/internal/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Timestamp layout used by the indexer for transaction_timestamp.
const timestampLayout = "2006-01-02T15:04:05"

const balancesQuery = `query WalletBalances($address: String!) {
  current_fungible_asset_balances(
    where: {owner_address: {_eq: $address}, amount: {_gt: "0"}}
  ) {
    asset_type
    amount
    metadata { symbol decimals }
  }
}`

const activitiesQuery = `query WalletActivities($address: String!, $assetTypes: [String!], $start: timestamp!, $end: timestamp!, $limit: Int!, $offset: Int!) {
  fungible_asset_activities(
    where: {
      owner_address: {_eq: $address},
      asset_type: {_in: $assetTypes},
      transaction_timestamp: {_gte: $start, _lte: $end}
    }
    order_by: {transaction_version: asc}
    limit: $limit
    offset: $offset
  ) {
    asset_type
    amount
    type
    transaction_timestamp
  }
}`

// Client talks to the Aptos Indexer GraphQL API. It implements both
// port.BalanceSource and port.FlowSource.
type Client struct {
	client           *fasthttp.Client
	graphqlURL       string
	timeout          time.Duration
	logger           *zap.Logger
	pageSize         int
	maxTypesPerQuery int
}

// NewClient creates a new indexer client.
func NewClient(graphqlURL string, timeout time.Duration, logger *zap.Logger, pageSize, maxTypesPerQuery int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		client:           &fasthttp.Client{},
		graphqlURL:       strings.TrimRight(graphqlURL, "/"),
		timeout:          timeout,
		logger:           logger.Named("IndexerClient"),
		pageSize:         pageSize,
		maxTypesPerQuery: maxTypesPerQuery,
	}
}

// GetBalances fetches the wallet's current fungible asset balances, converted
// to human units. Zero-balance rows are filtered out by the query itself.
func (c *Client) GetBalances(ctx context.Context, address string) ([]entity.AssetBalance, error) {
	body, err := c.execute(ctx, graphQLRequest{
		Query:     balancesQuery,
		Variables: map[string]interface{}{"address": address},
	})
	if err != nil {
		return nil, fmt.Errorf("balances query failed: %w", err)
	}

	var resp balancesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("Failed to unmarshal balances response",
			zap.String("address", address),
			zap.ByteString("responseBody", body),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal balances response: %w", err)
	}
	if len(resp.Errors) > 0 {
		c.logger.Error("Indexer returned GraphQL errors for balances query",
			zap.String("address", address),
			zap.String("firstError", resp.Errors[0].Message))
		return nil, fmt.Errorf("indexer balances query returned %d errors: %s", len(resp.Errors), resp.Errors[0].Message)
	}

	balances := make([]entity.AssetBalance, 0, len(resp.Data.Balances))
	for _, row := range resp.Data.Balances {
		amount, err := utils.FromBaseUnits(row.Amount.String(), row.Metadata.Decimals)
		if err != nil {
			c.logger.Warn("Skipping balance row with unparseable amount",
				zap.String("address", address),
				zap.String("assetType", row.AssetType),
				zap.String("rawAmount", row.Amount.String()),
				zap.Error(err))
			continue
		}
		balances = append(balances, entity.AssetBalance{
			AssetType: row.AssetType,
			Symbol:    row.Metadata.Symbol,
			Decimals:  row.Metadata.Decimals,
			Balance:   amount,
		})
	}

	c.logger.Debug("Fetched wallet balances",
		zap.String("address", address),
		zap.Int("assetCount", len(balances)))
	return balances, nil
}

// GetFlows fetches signed balance-changing activity for the address restricted
// to the given asset types and window. Deposits are positive, withdrawals
// negative. Amounts stay in base units; the flow ledger applies each asset's
// decimal shift since only it knows the resolved metadata.
func (c *Client) GetFlows(ctx context.Context, address string, assetTypes []string, start, end time.Time) ([]entity.FlowEvent, error) {
	if len(assetTypes) == 0 {
		return nil, nil
	}

	var events []entity.FlowEvent
	for _, batch := range utils.BatchStrings(assetTypes, c.maxTypesPerQuery) {
		batchEvents, err := c.fetchActivityPages(ctx, address, batch, start, end)
		if err != nil {
			return nil, err
		}
		events = append(events, batchEvents...)
	}

	c.logger.Debug("Fetched wallet flows",
		zap.String("address", address),
		zap.Int("assetTypeCount", len(assetTypes)),
		zap.Int("eventCount", len(events)))
	return events, nil
}

// fetchActivityPages pages through fungible_asset_activities until a short page.
func (c *Client) fetchActivityPages(ctx context.Context, address string, assetTypes []string, start, end time.Time) ([]entity.FlowEvent, error) {
	var events []entity.FlowEvent

	for offset := 0; ; offset += c.pageSize {
		body, err := c.execute(ctx, graphQLRequest{
			Query: activitiesQuery,
			Variables: map[string]interface{}{
				"address":    address,
				"assetTypes": assetTypes,
				"start":      start.UTC().Format(timestampLayout),
				"end":        end.UTC().Format(timestampLayout),
				"limit":      c.pageSize,
				"offset":     offset,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("activities query failed at offset %d: %w", offset, err)
		}

		var resp activitiesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.logger.Error("Failed to unmarshal activities response",
				zap.String("address", address),
				zap.Int("offset", offset),
				zap.Error(err))
			return nil, fmt.Errorf("failed to unmarshal activities response: %w", err)
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("indexer activities query returned %d errors: %s", len(resp.Errors), resp.Errors[0].Message)
		}

		for _, row := range resp.Data.Activities {
			ev, ok := c.toFlowEvent(address, row)
			if ok {
				events = append(events, ev)
			}
		}

		if len(resp.Data.Activities) < c.pageSize {
			return events, nil
		}
	}
}

// toFlowEvent converts an activity row to a signed flow event. Rows with an
// unrecognized type (gas fees, metadata mutations) are dropped.
func (c *Client) toFlowEvent(address string, row fungibleAssetActivity) (entity.FlowEvent, bool) {
	var sign decimal.Decimal
	switch {
	case strings.HasSuffix(row.Type, "DepositEvent"), strings.HasSuffix(row.Type, "Deposit"):
		sign = decimal.NewFromInt(1)
	case strings.HasSuffix(row.Type, "WithdrawEvent"), strings.HasSuffix(row.Type, "Withdraw"):
		sign = decimal.NewFromInt(-1)
	default:
		return entity.FlowEvent{}, false
	}

	amount, err := decimal.NewFromString(row.Amount.String())
	if err != nil {
		c.logger.Warn("Skipping activity row with unparseable amount",
			zap.String("address", address),
			zap.String("assetType", row.AssetType),
			zap.String("rawAmount", row.Amount.String()),
			zap.Error(err))
		return entity.FlowEvent{}, false
	}

	ts, err := time.Parse(timestampLayout, row.TransactionTimestamp)
	if err != nil {
		if ts, err = time.Parse(time.RFC3339, row.TransactionTimestamp); err != nil {
			c.logger.Warn("Skipping activity row with unparseable timestamp",
				zap.String("address", address),
				zap.String("assetType", row.AssetType),
				zap.String("timestamp", row.TransactionTimestamp),
				zap.Error(err))
			return entity.FlowEvent{}, false
		}
	}

	return entity.FlowEvent{
		AssetType: row.AssetType,
		Amount:    amount.Mul(sign),
		Date:      ts.UTC().Format(entity.DateLayout),
	}, true
}

// execute posts a GraphQL request and returns the raw response body.
func (c *Client) execute(ctx context.Context, gql graphQLRequest) ([]byte, error) {
	payload, err := json.Marshal(gql)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.graphqlURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to indexer", zap.String("url", c.graphqlURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s: %w", c.graphqlURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to indexer (with default timeout)", zap.String("url", c.graphqlURL), zap.Error(err))
			return nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", c.graphqlURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Indexer request failed",
			zap.String("url", c.graphqlURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("indexer request to %s failed with status %d", c.graphqlURL, resp.StatusCode())
	}

	// Body() is only valid until release; copy it out.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
