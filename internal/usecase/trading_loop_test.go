package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

type loopFixture struct {
	loop    *TradingLoop
	market  *fakeMarket
	orders  *fakeOrders
	store   *fakeStore
	alerter *fakeAlerter
	metrics *fakeMetrics
	tracker *DailyTracker
}

func newLoopFixture(t *testing.T, pairs []string) *loopFixture {
	t.Helper()
	log := testLogger(t)

	market := &fakeMarket{
		snapshots: make(map[string]*models.MarketSnapshot),
		bars:      make(map[string][]models.Bar),
	}
	for _, pair := range pairs {
		market.snapshots[pair] = &models.MarketSnapshot{Pair: pair, Price: 100, ATR: 0.1, Volume: 1000}
		market.bars[pair] = risingBars(20, 86)
	}

	orders := &fakeOrders{}
	store := &fakeStore{}
	alerter := &fakeAlerter{}
	metrics := &fakeMetrics{}
	engine := NewSignalEngine(log)
	tracker := NewDailyTracker(store, metrics, log, time.Now())

	loop := NewTradingLoop(
		LoopConfig{Pairs: pairs, MinQuoteBalance: 10, DryRun: true},
		market,
		&fakeExternal{},
		&fakeBalances{quote: 1000},
		orders,
		store,
		&fakeAdvisor{hint: models.HintNeutral},
		alerter,
		metrics,
		engine,
		NewConvictionGate(len(pairs)),
		tracker,
		NewFeedbackLoop(engine, log),
		log,
	)
	return &loopFixture{
		loop:    loop,
		market:  market,
		orders:  orders,
		store:   store,
		alerter: alerter,
		metrics: metrics,
		tracker: tracker,
	}
}

func TestLoopBootstrapReconstructsAndLoadsWindows(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD", "ETHUSD"})
	f.store.trades = []*models.TradeRecord{
		{Timestamp: time.Now(), Pair: "XBTUSD", Action: models.ActionBuy, Amount: 0.5, Price: 100, OrderID: "o1"},
	}

	require.NoError(t, f.loop.bootstrap(context.Background()))

	views := f.loop.PositionsSnapshot()
	require.Len(t, views, 2)
	assert.Equal(t, models.StateLong, views[0].State)
	assert.Equal(t, 100.0, views[0].EntryPrice)
	assert.Equal(t, models.StateFlat, views[1].State)
	assert.Equal(t, 2, f.market.ohlcCalls)
}

func TestLoopTakeProfitExit(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	f.store.trades = []*models.TradeRecord{
		{Timestamp: time.Now(), Pair: "XBTUSD", Action: models.ActionBuy, Amount: 0.5, Price: 100, OrderID: "o1"},
	}
	require.NoError(t, f.loop.bootstrap(context.Background()))

	f.market.snapshots["XBTUSD"].Price = 102

	require.NoError(t, f.loop.runCycle(context.Background()))

	require.Len(t, f.orders.placed, 1)
	sell := f.orders.placed[0]
	assert.Equal(t, "sell", sell.side)
	assert.Equal(t, 0.5, sell.amount)
	assert.Equal(t, 102.0, sell.price)

	views := f.loop.PositionsSnapshot()
	assert.Equal(t, models.StateFlat, views[0].State)

	// newest trade in the log is the sell
	require.NotEmpty(t, f.store.trades)
	assert.Equal(t, models.ActionSell, f.store.trades[0].Action)
	assert.Equal(t, "order-1", f.store.trades[0].OrderID)

	day := f.tracker.Day("XBTUSD")
	assert.InDelta(t, 0.016, day.PnL, 1e-9, "2% gain less the round-trip fee")
	assert.Equal(t, 1, day.TradeCount)
}

func TestLoopStopLossExit(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	f.store.trades = []*models.TradeRecord{
		{Timestamp: time.Now(), Pair: "XBTUSD", Action: models.ActionBuy, Amount: 0.5, Price: 100, OrderID: "o1"},
	}
	require.NoError(t, f.loop.bootstrap(context.Background()))

	f.market.snapshots["XBTUSD"].Price = 97.5

	require.NoError(t, f.loop.runCycle(context.Background()))

	require.Len(t, f.orders.placed, 1)
	assert.Equal(t, "sell", f.orders.placed[0].side)
	assert.InDelta(t, -0.025, f.tracker.Day("XBTUSD").PnL, 1e-9, "stop-loss books the raw loss")
}

func TestLoopSellFailureKeepsPosition(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	f.store.trades = []*models.TradeRecord{
		{Timestamp: time.Now(), Pair: "XBTUSD", Action: models.ActionBuy, Amount: 0.5, Price: 100, OrderID: "o1"},
	}
	require.NoError(t, f.loop.bootstrap(context.Background()))

	f.market.snapshots["XBTUSD"].Price = 102
	f.orders.err = fmt.Errorf("exchange rejected")

	// an order failure abandons the pair for this cycle, not the cycle itself
	require.NoError(t, f.loop.runCycle(context.Background()))

	views := f.loop.PositionsSnapshot()
	assert.Equal(t, models.StateLong, views[0].State)
	assert.Equal(t, 100.0, views[0].EntryPrice)
	require.Len(t, f.store.trades, 1, "no sell was recorded")
	assert.Zero(t, f.tracker.Day("XBTUSD").PnL)
	assert.NotEmpty(t, f.alerter.alerts)
	assert.Equal(t, 1, f.metrics.errors["order_sell"])
}

func TestLoopFlatPairHoldsWithoutConsensus(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	require.NoError(t, f.loop.bootstrap(context.Background()))

	require.NoError(t, f.loop.runCycle(context.Background()))

	assert.Empty(t, f.orders.placed)
	assert.Equal(t, models.StateFlat, f.loop.PositionsSnapshot()[0].State)
}

func TestLoopSnapshotErrorFailsCycle(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	require.NoError(t, f.loop.bootstrap(context.Background()))

	f.market.snapErr = fmt.Errorf("api down")
	err := f.loop.runCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot")
}

func TestLoopExternalFailureSoftensToZero(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	require.NoError(t, f.loop.bootstrap(context.Background()))

	f.loop.external = &fakeExternal{err: fmt.Errorf("provider down")}

	require.NoError(t, f.loop.runCycle(context.Background()))
	assert.Equal(t, 1, f.metrics.errors["external_data"])
}

func TestLoopOrderedPairsPrefersVolatile(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD", "ETHUSD", "ADAUSD"})

	// ETH swings hard, the others barely move
	for i := 0; i < 10; i++ {
		f.loop.recordPrice("XBTUSD", 100+float64(i%2))
		f.loop.recordPrice("ADAUSD", 1)
		if i%2 == 0 {
			f.loop.recordPrice("ETHUSD", 3000)
		} else {
			f.loop.recordPrice("ETHUSD", 3600)
		}
	}

	ordered := f.loop.orderedPairs()
	require.Len(t, ordered, 3)
	assert.Equal(t, "ETHUSD", ordered[0])
	// the remaining pairs keep their configured order
	assert.Equal(t, []string{"XBTUSD", "ADAUSD"}, ordered[1:])
}

func TestLoopOrderedPairsDefaultOrderWithoutHistory(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD", "ETHUSD"})
	assert.Equal(t, []string{"XBTUSD", "ETHUSD"}, f.loop.orderedPairs())
}

func TestLoopPriceHistoryBounded(t *testing.T) {
	f := newLoopFixture(t, []string{"XBTUSD"})
	for i := 0; i < priceHistoryLimit+50; i++ {
		f.loop.recordPrice("XBTUSD", float64(i))
	}
	assert.Len(t, f.loop.priceHist["XBTUSD"], priceHistoryLimit)
	assert.Equal(t, 50.0, f.loop.priceHist["XBTUSD"][0])
}
