package repository

import (
	"context"

	"TradePulse/internal/domain/models"
	domainrepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"
)

// DualStore writes to a fast local store and a durable remote store. The
// durable store is the source of truth: its write failure fails the call,
// while a fast-store failure is logged as a discrepancy and absorbed. There
// is no cross-store transaction.
type DualStore struct {
	fast    domainrepo.TradeStore
	durable domainrepo.TradeStore
	metrics domainrepo.Metrics
	logger  *logger.Logger
}

// NewDualStore pairs the fast and durable stores.
func NewDualStore(fast, durable domainrepo.TradeStore, metrics domainrepo.Metrics, log *logger.Logger) *DualStore {
	return &DualStore{fast: fast, durable: durable, metrics: metrics, logger: log}
}

func (s *DualStore) AppendTrade(ctx context.Context, trade *models.TradeRecord) error {
	fastErr := s.fast.AppendTrade(ctx, trade)
	durableErr := s.durable.AppendTrade(ctx, trade)
	return s.resolve("append_trade", fastErr, durableErr)
}

func (s *DualStore) UpsertDailyPnl(ctx context.Context, row *models.DailyPnL) error {
	fastErr := s.fast.UpsertDailyPnl(ctx, row)
	durableErr := s.durable.UpsertDailyPnl(ctx, row)
	return s.resolve("upsert_daily_pnl", fastErr, durableErr)
}

// LastTrades reads from the durable store, falling back to the fast store
// when the durable side is unreachable.
func (s *DualStore) LastTrades(ctx context.Context, n int) ([]*models.TradeRecord, error) {
	trades, err := s.durable.LastTrades(ctx, n)
	if err == nil {
		return trades, nil
	}
	s.logger.Warn("durable store read failed, falling back to fast store", logger.Error(err))
	s.metrics.RecordError("durable_read")
	return s.fast.LastTrades(ctx, n)
}

func (s *DualStore) SumPnlByPair(ctx context.Context) (map[string]float64, error) {
	sums, err := s.durable.SumPnlByPair(ctx)
	if err == nil {
		return sums, nil
	}
	s.logger.Warn("durable store read failed, falling back to fast store", logger.Error(err))
	s.metrics.RecordError("durable_read")
	return s.fast.SumPnlByPair(ctx)
}

func (s *DualStore) Health(ctx context.Context) error {
	return s.durable.Health(ctx)
}

func (s *DualStore) Close() error {
	fastErr := s.fast.Close()
	if err := s.durable.Close(); err != nil {
		return err
	}
	return fastErr
}

func (s *DualStore) resolve(op string, fastErr, durableErr error) error {
	if fastErr != nil && durableErr == nil {
		s.logger.Error("dual store discrepancy",
			logger.String("operation", op),
			logger.String("failed_side", "fast"),
			logger.Error(fastErr),
		)
		s.metrics.RecordError("dual_store_discrepancy")
		return nil
	}
	if durableErr != nil && fastErr == nil {
		s.logger.Error("dual store discrepancy",
			logger.String("operation", op),
			logger.String("failed_side", "durable"),
			logger.Error(durableErr),
		)
		s.metrics.RecordError("dual_store_discrepancy")
	}
	return durableErr
}
