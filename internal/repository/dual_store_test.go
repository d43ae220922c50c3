package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

type memStore struct {
	trades    []*models.TradeRecord
	pnl       map[string]float64
	writeErr  error
	readErr   error
	closeErr  error
	closed    bool
	upserts   int
}

func (m *memStore) AppendTrade(_ context.Context, tr *models.TradeRecord) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.trades = append([]*models.TradeRecord{tr}, m.trades...)
	return nil
}

func (m *memStore) UpsertDailyPnl(_ context.Context, row *models.DailyPnL) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.pnl == nil {
		m.pnl = make(map[string]float64)
	}
	m.pnl[row.Pair] = row.PnL
	m.upserts++
	return nil
}

func (m *memStore) LastTrades(_ context.Context, n int) ([]*models.TradeRecord, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if n > len(m.trades) {
		n = len(m.trades)
	}
	return m.trades[:n], nil
}

func (m *memStore) SumPnlByPair(context.Context) (map[string]float64, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.pnl, nil
}

func (m *memStore) Health(context.Context) error { return nil }

func (m *memStore) Close() error {
	m.closed = true
	return m.closeErr
}

type countMetrics struct {
	errors map[string]int
}

func (c *countMetrics) RecordCycle(float64)             {}
func (c *countMetrics) RecordTrade(string, string)      {}
func (c *countMetrics) RecordLastPrice(string, float64) {}
func (c *countMetrics) RecordDailyPnl(string, float64)  {}
func (c *countMetrics) RecordLatency(string, float64)   {}

func (c *countMetrics) RecordError(kind string) {
	if c.errors == nil {
		c.errors = make(map[string]int)
	}
	c.errors[kind]++
}

func newDualFixture(t *testing.T) (*DualStore, *memStore, *memStore, *countMetrics) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	fast := &memStore{}
	durable := &memStore{}
	metrics := &countMetrics{}
	return NewDualStore(fast, durable, metrics, log), fast, durable, metrics
}

func sampleTrade() *models.TradeRecord {
	return &models.TradeRecord{
		Timestamp: time.Now(),
		Pair:      "XBTUSD",
		Action:    models.ActionBuy,
		Amount:    0.5,
		Price:     60000,
		OrderID:   "o1",
	}
}

func TestDualStoreWritesBothSides(t *testing.T) {
	store, fast, durable, metrics := newDualFixture(t)

	require.NoError(t, store.AppendTrade(context.Background(), sampleTrade()))

	assert.Len(t, fast.trades, 1)
	assert.Len(t, durable.trades, 1)
	assert.Empty(t, metrics.errors)
}

func TestDualStoreAbsorbsFastFailure(t *testing.T) {
	store, fast, durable, metrics := newDualFixture(t)
	fast.writeErr = fmt.Errorf("redis down")

	require.NoError(t, store.AppendTrade(context.Background(), sampleTrade()),
		"the durable write succeeded, so the call succeeds")

	assert.Len(t, durable.trades, 1)
	assert.Equal(t, 1, metrics.errors["dual_store_discrepancy"])
}

func TestDualStoreDurableFailureFailsCall(t *testing.T) {
	store, fast, durable, metrics := newDualFixture(t)
	durable.writeErr = fmt.Errorf("clickhouse down")

	err := store.UpsertDailyPnl(context.Background(), &models.DailyPnL{Date: "2025-06-01", Pair: "XBTUSD", PnL: 0.01})
	require.Error(t, err)

	assert.Equal(t, 1, fast.upserts, "the fast side still received the write")
	assert.Equal(t, 1, metrics.errors["dual_store_discrepancy"])
}

func TestDualStoreReadsPreferDurable(t *testing.T) {
	store, fast, durable, metrics := newDualFixture(t)
	durable.trades = []*models.TradeRecord{sampleTrade()}
	fast.trades = []*models.TradeRecord{sampleTrade(), sampleTrade()}

	trades, err := store.LastTrades(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Empty(t, metrics.errors)
}

func TestDualStoreReadFallsBackToFast(t *testing.T) {
	store, fast, durable, metrics := newDualFixture(t)
	durable.readErr = fmt.Errorf("clickhouse down")
	fast.trades = []*models.TradeRecord{sampleTrade()}
	fast.pnl = map[string]float64{"XBTUSD": 0.02}

	trades, err := store.LastTrades(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	sums, err := store.SumPnlByPair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.02, sums["XBTUSD"])

	assert.Equal(t, 2, metrics.errors["durable_read"])
}

func TestDualStoreCloseClosesBoth(t *testing.T) {
	store, fast, durable, _ := newDualFixture(t)
	fast.closeErr = fmt.Errorf("already closed")

	err := store.Close()
	require.Error(t, err)
	assert.True(t, fast.closed)
	assert.True(t, durable.closed)
}
