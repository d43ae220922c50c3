package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

type fakeMarket struct {
	snapshots map[string]*models.MarketSnapshot
	bars      map[string][]models.Bar
	snapErr   error
	ohlcCalls int
}

func (f *fakeMarket) Snapshot(_ context.Context, pair string) (*models.MarketSnapshot, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	snap, ok := f.snapshots[pair]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", pair)
	}
	cp := *snap
	return &cp, nil
}

func (f *fakeMarket) OHLC(_ context.Context, pair string, _ int) ([]models.Bar, error) {
	f.ohlcCalls++
	return f.bars[pair], nil
}

type fakeExternal struct {
	agg models.ExternalAggregate
	err error
}

func (f *fakeExternal) Aggregate(context.Context, string) (models.ExternalAggregate, error) {
	return f.agg, f.err
}

type fakeBalances struct {
	quote float64
	base  map[string]float64
	err   error
}

func (f *fakeBalances) QuoteBalance(context.Context) (float64, error) {
	return f.quote, f.err
}

func (f *fakeBalances) BaseBalance(_ context.Context, pair string) (float64, error) {
	return f.base[pair], f.err
}

type placedOrder struct {
	pair   string
	side   string
	amount float64
	price  float64
}

type fakeOrders struct {
	placed []placedOrder
	err    error
	seq    int
}

func (f *fakeOrders) place(pair, side string, amount, price float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.seq++
	f.placed = append(f.placed, placedOrder{pair: pair, side: side, amount: amount, price: price})
	return fmt.Sprintf("order-%d", f.seq), nil
}

func (f *fakeOrders) PlaceBuy(_ context.Context, pair string, amount, price float64) (string, error) {
	return f.place(pair, "buy", amount, price)
}

func (f *fakeOrders) PlaceSell(_ context.Context, pair string, amount, price float64) (string, error) {
	return f.place(pair, "sell", amount, price)
}

type fakeStore struct {
	mu      sync.Mutex
	trades  []*models.TradeRecord
	pnlRows []*models.DailyPnL
	appendE error
	upsertE error
	lastE   error
}

func (f *fakeStore) AppendTrade(_ context.Context, tr *models.TradeRecord) error {
	if f.appendE != nil {
		return f.appendE
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append([]*models.TradeRecord{tr}, f.trades...)
	return nil
}

func (f *fakeStore) UpsertDailyPnl(_ context.Context, row *models.DailyPnL) error {
	if f.upsertE != nil {
		return f.upsertE
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.pnlRows = append(f.pnlRows, &cp)
	return nil
}

func (f *fakeStore) LastTrades(_ context.Context, n int) ([]*models.TradeRecord, error) {
	if f.lastE != nil {
		return nil, f.lastE
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.trades) {
		n = len(f.trades)
	}
	return f.trades[:n], nil
}

func (f *fakeStore) SumPnlByPair(context.Context) (map[string]float64, error) {
	sums := make(map[string]float64)
	for _, row := range f.pnlRows {
		sums[row.Pair] += row.PnL
	}
	return sums, nil
}

func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

type fakeAdvisor struct {
	hint models.Hint
	text string
}

func (f *fakeAdvisor) ReviewTrade(context.Context, *models.TradeRecord, float64) (string, error) {
	return "", nil
}

func (f *fakeAdvisor) StrategyHint(context.Context, string) (models.Hint, string, error) {
	return f.hint, f.text, nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (f *fakeAlerter) Alert(_ context.Context, subject, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, subject)
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (f *fakeMetrics) RecordCycle(float64)            {}
func (f *fakeMetrics) RecordTrade(string, string)     {}
func (f *fakeMetrics) RecordLastPrice(string, float64) {}
func (f *fakeMetrics) RecordDailyPnl(string, float64) {}
func (f *fakeMetrics) RecordLatency(string, float64)  {}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errors == nil {
		f.errors = make(map[string]int)
	}
	f.errors[kind]++
}

func risingBars(n int, start float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		price := start + float64(i)
		bars[i] = models.Bar{
			Time:  time.Date(2025, 6, 1, i, 0, 0, 0, time.UTC),
			Open:  price - 0.5,
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		}
	}
	return bars
}
