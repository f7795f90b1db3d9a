package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCoinGeckoTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	return srv, &calls
}

func TestGetDailySeries_LastPointPerDayWins(t *testing.T) {
	// 2025-06-01T00:00Z, 2025-06-02T00:00Z and an intraday point later that day.
	srv, _ := newCoinGeckoTestServer(t, map[string]string{
		"/coins/aptos/market_chart": `{"prices":[
			[1748736000000, 5.0],
			[1748822400000, 5.2],
			[1748865600000, 5.5]
		]}`,
	})
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute, zap.NewNop())
	series, err := client.GetDailySeries(context.Background(), "aptos", 7)
	require.NoError(t, err)

	assert.Equal(t, 5.0, series["2025-06-01"])
	assert.Equal(t, 5.5, series["2025-06-02"], "the later intraday point must win")
	assert.Len(t, series, 2)
}

func TestGetCurrentPrice(t *testing.T) {
	srv, _ := newCoinGeckoTestServer(t, map[string]string{
		"/simple/price": `{"aptos":{"usd":8.42}}`,
	})
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute, zap.NewNop())
	price, err := client.GetCurrentPrice(context.Background(), "aptos")
	require.NoError(t, err)
	assert.Equal(t, 8.42, price)
}

func TestGetCurrentPrice_MissingFeed(t *testing.T) {
	srv, _ := newCoinGeckoTestServer(t, map[string]string{
		"/simple/price": `{}`,
	})
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute, zap.NewNop())
	_, err := client.GetCurrentPrice(context.Background(), "aptos")
	assert.Error(t, err)
}

func TestGetPlatformMapping_FiltersAndCaches(t *testing.T) {
	srv, calls := newCoinGeckoTestServer(t, map[string]string{
		"/coins/list": `[
			{"id":"tether","symbol":"usdt","platforms":{"aptos":"0xCC::tether::USDT","ethereum":"0xdac1"}},
			{"id":"ethereum","symbol":"eth","platforms":{"ethereum":"0x0"}},
			{"id":"no-platforms","symbol":"x","platforms":{}}
		]`,
	})
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute, zap.NewNop())

	mapping, err := client.GetPlatformMapping(context.Background())
	require.NoError(t, err)
	require.Len(t, mapping, 1, "only assets deployed on the chain belong in the mapping")
	assert.Equal(t, "tether", mapping["0xcc::tether::usdt"], "contract keys are lowercased")

	_, err = client.GetPlatformMapping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, *calls, "second lookup must be served from cache")
}

func TestGetDailySeries_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, time.Minute, zap.NewNop())
	_, err := client.GetDailySeries(context.Background(), "aptos", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
