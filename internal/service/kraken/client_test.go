package kraken

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordCycle(float64)             {}
func (noopMetrics) RecordTrade(string, string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordDailyPnl(string, float64)  {}
func (noopMetrics) RecordLatency(string, float64)   {}

func krakenTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func publicTestServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/Ticker"):
			fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":{"c":["60000.5","0.1"]}}}`)
		case strings.HasSuffix(r.URL.Path, "/Depth"):
			fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":{"bids":[["59999.0","1.5",1700000000]],"asks":[["60001.0","2.0",1700000000]]}}}`)
		case strings.HasSuffix(r.URL.Path, "/OHLC"):
			fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":[`+
				`[1700000000,"100","102","99","101","100.5","12.3",5],`+
				`[1700000300,"101","103","100","102","101.5","8.1",4],`+
				`[1700000600,"102","104","101","103","102.5","9.9",6]`+
				`],"last":1700000600}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestSnapshotFromPublicEndpoints(t *testing.T) {
	server, requests := publicTestServer(t)
	client := NewClient(Config{RESTURL: server.URL, CacheTTL: time.Minute}, krakenTestLogger(t), noopMetrics{})

	snap, err := client.Snapshot(context.Background(), "XBTUSD")
	require.NoError(t, err)

	assert.Equal(t, "XBTUSD", snap.Pair)
	assert.Equal(t, 60000.5, snap.Price)
	assert.InDelta(t, 3.5, snap.Volume, 1e-9, "top-of-book bid and ask volume")
	// true ranges of the last two candles are both 3.0
	assert.InDelta(t, 3.0, snap.ATR, 1e-9)

	before := requests.Load()
	_, err = client.Snapshot(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, before, requests.Load(), "second call inside the TTL hits the cache")
}

func TestUpdatePriceRefreshesCache(t *testing.T) {
	server, _ := publicTestServer(t)
	client := NewClient(Config{RESTURL: server.URL, CacheTTL: time.Minute}, krakenTestLogger(t), noopMetrics{})

	_, err := client.Snapshot(context.Background(), "XBTUSD")
	require.NoError(t, err)

	client.UpdatePrice("XBTUSD", 61000)
	snap, err := client.Snapshot(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, 61000.0, snap.Price)

	// non-positive ticks are ignored
	client.UpdatePrice("XBTUSD", 0)
	snap, err = client.Snapshot(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, 61000.0, snap.Price)
}

func TestOHLCWindow(t *testing.T) {
	server, _ := publicTestServer(t)
	client := NewClient(Config{RESTURL: server.URL}, krakenTestLogger(t), noopMetrics{})

	bars, err := client.OHLC(context.Background(), "XBTUSD", 30)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Unix(1700000000, 0), bars[0].Time)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 102.0, bars[0].High)
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.InDelta(t, 12.3, bars[0].Volume, 1e-9)
	assert.Equal(t, 103.0, bars[2].Close)
}

func TestPublicQueryGivesUpAfterRetries(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":["EService:Unavailable"],"result":null}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{RESTURL: server.URL}, krakenTestLogger(t), noopMetrics{})

	_, err := client.Snapshot(context.Background(), "XBTUSD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EService:Unavailable")
	assert.Equal(t, int64(maxAttempts), requests.Load())
}

func TestPublicQueryRetryHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":["EService:Unavailable"],"result":null}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{RESTURL: server.URL}, krakenTestLogger(t), noopMetrics{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Snapshot(ctx, "XBTUSD")
	require.Error(t, err)
}

func TestDryRunOrdersAndBalances(t *testing.T) {
	client := NewClient(Config{DryRun: true}, krakenTestLogger(t), noopMetrics{})

	id, err := client.PlaceBuy(context.Background(), "XBTUSD", 0.5, 60000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dry-buy-"))

	id, err = client.PlaceSell(context.Background(), "XBTUSD", 0.5, 61000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dry-sell-"))

	quote, err := client.QuoteBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10000.0, quote, "simulated account balance")

	base, err := client.BaseBalance(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Zero(t, base)
}

func TestSignDeterministic(t *testing.T) {
	client := NewClient(Config{APISecret: "c2VjcmV0LWtleS1tYXRlcmlhbA=="}, krakenTestLogger(t), noopMetrics{})

	a, err := client.sign("/0/private/AddOrder", "1", "nonce=1&pair=XBTUSD")
	require.NoError(t, err)
	b, err := client.sign("/0/private/AddOrder", "1", "nonce=1&pair=XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	c, err := client.sign("/0/private/AddOrder", "2", "nonce=2&pair=XBTUSD")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSignRejectsBadSecret(t *testing.T) {
	client := NewClient(Config{APISecret: "not base64!!"}, krakenTestLogger(t), noopMetrics{})
	_, err := client.sign("/0/private/AddOrder", "1", "nonce=1")
	require.Error(t, err)
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "XBT", baseAsset("XBTUSD"))
	assert.Equal(t, "ETH", baseAsset("ETHUSDT"))
	assert.Equal(t, "ADA", baseAsset("ADAZUSD"))
	assert.Equal(t, "XBTEUR", baseAsset("XBTEUR"))
}

func TestLookupBalancePrefixes(t *testing.T) {
	balances := map[string]float64{"XXBT": 1.5, "ZUSD": 2500, "ETH": 10}

	assert.Equal(t, 1.5, lookupBalance(balances, "XBT"))
	assert.Equal(t, 2500.0, lookupBalance(balances, "USD"))
	assert.Equal(t, 10.0, lookupBalance(balances, "ETH"))
	assert.Zero(t, lookupBalance(balances, "SOL"))
}
