package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// DailyTracker accumulates per-pair realized PnL and trade counts for the
// current local day. On date change the finished day is flushed to the store
// once and the counters reset before any new trade lands.
type DailyTracker struct {
	store   repository.TradeStore
	metrics repository.Metrics
	logger  *logger.Logger

	date   string
	pnl    map[string]float64
	trades map[string]int
}

// NewDailyTracker creates a tracker anchored to now's local date.
func NewDailyTracker(store repository.TradeStore, metrics repository.Metrics, log *logger.Logger, now time.Time) *DailyTracker {
	return &DailyTracker{
		store:   store,
		metrics: metrics,
		logger:  log,
		date:    util.DayKey(now),
		pnl:     make(map[string]float64),
		trades:  make(map[string]int),
	}
}

// Date returns the tracked local date.
func (t *DailyTracker) Date() string {
	return t.date
}

// Day returns the tracked state for a pair.
func (t *DailyTracker) Day(pair string) DayState {
	return DayState{PnL: t.pnl[pair], TradeCount: t.trades[pair]}
}

// Roll flushes and resets when the local date changed. A failed flush keeps
// the finished day in memory so the next cycle retries it.
func (t *DailyTracker) Roll(ctx context.Context, now time.Time) error {
	today := util.DayKey(now)
	if today == t.date {
		return nil
	}

	pairs := make(map[string]bool, len(t.pnl)+len(t.trades))
	for pair := range t.pnl {
		pairs[pair] = true
	}
	for pair := range t.trades {
		pairs[pair] = true
	}

	for pair := range pairs {
		row := &models.DailyPnL{
			Date:       t.date,
			Pair:       pair,
			PnL:        t.pnl[pair],
			TradeCount: t.trades[pair],
		}
		if err := t.store.UpsertDailyPnl(ctx, row); err != nil {
			return fmt.Errorf("flush daily pnl for %s: %w", pair, err)
		}
		t.logger.Info("daily pnl flushed",
			logger.String("date", t.date),
			logger.String("pair", pair),
			logger.Float64("pnl", t.pnl[pair]),
			logger.Int("trades", t.trades[pair]),
		)
	}

	t.date = today
	t.pnl = make(map[string]float64)
	t.trades = make(map[string]int)
	return nil
}

// RecordEntry counts an executed buy toward today's trades.
func (t *DailyTracker) RecordEntry(pair string) {
	t.trades[pair]++
}

// RecordClose books realized PnL for a finished position and upserts the
// running row so the store stays current between rollovers.
func (t *DailyTracker) RecordClose(ctx context.Context, pair string, realized float64) error {
	t.pnl[pair] += realized
	t.trades[pair]++
	t.metrics.RecordDailyPnl(pair, t.pnl[pair])

	row := &models.DailyPnL{
		Date:       t.date,
		Pair:       pair,
		PnL:        t.pnl[pair],
		TradeCount: t.trades[pair],
	}
	if err := t.store.UpsertDailyPnl(ctx, row); err != nil {
		return fmt.Errorf("upsert daily pnl for %s: %w", pair, err)
	}
	return nil
}
