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

func TestTrackerRecordCloseUpsertsImmediately(t *testing.T) {
	store := &fakeStore{}
	tracker := NewDailyTracker(store, &fakeMetrics{}, testLogger(t), time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local))

	require.NoError(t, tracker.RecordClose(context.Background(), "XBTUSD", 0.012))
	require.NoError(t, tracker.RecordClose(context.Background(), "XBTUSD", -0.021))

	day := tracker.Day("XBTUSD")
	assert.InDelta(t, -0.009, day.PnL, 1e-9)
	assert.Equal(t, 2, day.TradeCount)

	require.Len(t, store.pnlRows, 2)
	last := store.pnlRows[1]
	assert.Equal(t, "2025-06-01", last.Date)
	assert.Equal(t, "XBTUSD", last.Pair)
	assert.InDelta(t, -0.009, last.PnL, 1e-9)
	assert.Equal(t, 2, last.TradeCount)
}

func TestTrackerRollSameDayIsNoop(t *testing.T) {
	store := &fakeStore{}
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	tracker := NewDailyTracker(store, &fakeMetrics{}, testLogger(t), start)
	tracker.RecordEntry("XBTUSD")

	require.NoError(t, tracker.Roll(context.Background(), start.Add(3*time.Hour)))

	assert.Equal(t, "2025-06-01", tracker.Date())
	assert.Equal(t, 1, tracker.Day("XBTUSD").TradeCount)
	assert.Empty(t, store.pnlRows)
}

func TestTrackerRollFlushesAndResets(t *testing.T) {
	store := &fakeStore{}
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	tracker := NewDailyTracker(store, &fakeMetrics{}, testLogger(t), start)

	require.NoError(t, tracker.RecordClose(context.Background(), "XBTUSD", 0.016))
	tracker.RecordEntry("ETHUSD")
	store.pnlRows = nil

	require.NoError(t, tracker.Roll(context.Background(), start.Add(24*time.Hour)))

	assert.Equal(t, "2025-06-02", tracker.Date())
	assert.Zero(t, tracker.Day("XBTUSD").PnL)
	assert.Zero(t, tracker.Day("XBTUSD").TradeCount)
	assert.Zero(t, tracker.Day("ETHUSD").TradeCount)

	require.Len(t, store.pnlRows, 2)
	byPair := make(map[string]*models.DailyPnL)
	for _, row := range store.pnlRows {
		assert.Equal(t, "2025-06-01", row.Date)
		byPair[row.Pair] = row
	}
	require.Contains(t, byPair, "XBTUSD")
	require.Contains(t, byPair, "ETHUSD")
	assert.InDelta(t, 0.016, byPair["XBTUSD"].PnL, 1e-9)
	assert.Equal(t, 1, byPair["XBTUSD"].TradeCount)
	assert.Zero(t, byPair["ETHUSD"].PnL, "an entry without a close still flushes its count")
	assert.Equal(t, 1, byPair["ETHUSD"].TradeCount)
}

func TestTrackerRollRetriesAfterFlushFailure(t *testing.T) {
	store := &fakeStore{upsertE: fmt.Errorf("store down")}
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	tracker := NewDailyTracker(store, &fakeMetrics{}, testLogger(t), start)
	tracker.RecordEntry("XBTUSD")

	next := start.Add(24 * time.Hour)
	require.Error(t, tracker.Roll(context.Background(), next))

	// the finished day stays in memory so the next cycle can retry
	assert.Equal(t, "2025-06-01", tracker.Date())
	assert.Equal(t, 1, tracker.Day("XBTUSD").TradeCount)

	store.upsertE = nil
	require.NoError(t, tracker.Roll(context.Background(), next))
	assert.Equal(t, "2025-06-02", tracker.Date())
	require.Len(t, store.pnlRows, 1)
	assert.Equal(t, "2025-06-01", store.pnlRows[0].Date)
}
