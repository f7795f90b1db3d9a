package indexer

import (
	"context"
	stdjson "encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aptoscope/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIndexerTestServer(t *testing.T, handler func(req graphQLRequest) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var gql graphQLRequest
		require.NoError(t, stdjson.Unmarshal(body, &gql))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handler(gql)))
	}))
}

func TestGetBalances(t *testing.T) {
	srv := newIndexerTestServer(t, func(req graphQLRequest) string {
		assert.Equal(t, "0x1", req.Variables["address"])
		return `{"data":{"current_fungible_asset_balances":[
			{"asset_type":"0x1::aptos_coin::AptosCoin","amount":1250000000,"metadata":{"symbol":"APT","decimals":8}},
			{"asset_type":"0xaa::usdc::USDC","amount":"100000000","metadata":{"symbol":"USDC","decimals":6}}
		]}}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop(), 100, 50)
	balances, err := client.GetBalances(context.Background(), "0x1")
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, entity.AptosCoinType, balances[0].AssetType)
	assert.Equal(t, "APT", balances[0].Symbol)
	assert.Equal(t, uint8(8), balances[0].Decimals)
	assert.Equal(t, "12.5", balances[0].Balance.String())

	assert.Equal(t, "100", balances[1].Balance.String())
}

func TestGetBalances_GraphQLErrors(t *testing.T) {
	srv := newIndexerTestServer(t, func(graphQLRequest) string {
		return `{"errors":[{"message":"field not found"}]}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zap.NewNop(), 100, 50)
	_, err := client.GetBalances(context.Background(), "0x1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field not found")
}

func TestGetFlows_SignsAndPaginates(t *testing.T) {
	pages := []string{
		`{"data":{"fungible_asset_activities":[
			{"asset_type":"0x1::aptos_coin::AptosCoin","amount":500000000,"type":"0x1::coin::DepositEvent","transaction_timestamp":"2025-06-01T10:00:00"},
			{"asset_type":"0x1::aptos_coin::AptosCoin","amount":200000000,"type":"0x1::coin::WithdrawEvent","transaction_timestamp":"2025-06-01T18:30:00"}
		]}}`,
		`{"data":{"fungible_asset_activities":[
			{"asset_type":"0x1::aptos_coin::AptosCoin","amount":1,"type":"0x1::aptos_coin::GasFeeEvent","transaction_timestamp":"2025-06-02T09:00:00"}
		]}}`,
	}
	var call int
	srv := newIndexerTestServer(t, func(req graphQLRequest) string {
		page := pages[call]
		call++
		return page
	})
	defer srv.Close()

	// pageSize 2 forces a second request after the full first page.
	client := NewClient(srv.URL, time.Second, zap.NewNop(), 2, 50)
	events, err := client.GetFlows(context.Background(), "0x1",
		[]string{entity.AptosCoinType}, time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, call)

	// The gas fee row is dropped, deposits are positive, withdrawals negative.
	require.Len(t, events, 2)
	assert.Equal(t, "500000000", events[0].Amount.String())
	assert.Equal(t, "2025-06-01", events[0].Date)
	assert.Equal(t, "-200000000", events[1].Amount.String())
}

func TestGetFlows_NoAssetTypes(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop(), 100, 50)
	events, err := client.GetFlows(context.Background(), "0x1", nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestToFlowEvent_TimestampFormats(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop(), 100, 50)

	row := fungibleAssetActivity{
		AssetType:            entity.AptosCoinType,
		Amount:               stdjson.Number("100"),
		Type:                 "0x1::coin::Deposit",
		TransactionTimestamp: "2025-06-01T23:59:59Z",
	}
	ev, ok := client.toFlowEvent("0x1", row)
	require.True(t, ok, "RFC3339 timestamps are accepted as a fallback")
	assert.Equal(t, "2025-06-01", ev.Date)

	row.TransactionTimestamp = "not-a-time"
	_, ok = client.toFlowEvent("0x1", row)
	assert.False(t, ok)
}
