package repository

import (
	"context"

	"TradePulse/internal/domain/models"
)

// MarketData supplies exchange market metrics.
type MarketData interface {
	// Snapshot returns current price, short-window volume and ATR for a pair.
	Snapshot(ctx context.Context, pair string) (*models.MarketSnapshot, error)
	// OHLC returns hourly candles covering the last `days` days, oldest first.
	OHLC(ctx context.Context, pair string, days int) ([]models.Bar, error)
}

// ExternalData supplies metrics from providers outside the exchange.
type ExternalData interface {
	Aggregate(ctx context.Context, pair string) (models.ExternalAggregate, error)
}

// Balances reads account balances.
type Balances interface {
	QuoteBalance(ctx context.Context) (float64, error)
	BaseBalance(ctx context.Context, pair string) (float64, error)
}

// OrderExecutor submits orders and returns the exchange order id.
type OrderExecutor interface {
	PlaceBuy(ctx context.Context, pair string, amount, price float64) (string, error)
	PlaceSell(ctx context.Context, pair string, amount, price float64) (string, error)
}

// TradeStore persists trades and daily performance.
type TradeStore interface {
	AppendTrade(ctx context.Context, trade *models.TradeRecord) error
	// UpsertDailyPnl replaces the (date, pair) row. Last write wins.
	UpsertDailyPnl(ctx context.Context, row *models.DailyPnL) error
	// LastTrades returns up to n most recent trades, newest first.
	LastTrades(ctx context.Context, n int) ([]*models.TradeRecord, error)
	SumPnlByPair(ctx context.Context) (map[string]float64, error)
	Health(ctx context.Context) error
	Close() error
}

// Advisor reviews trades and strategy. Free-form advisory text never crosses
// this boundary for decision making: StrategyHint classifies it into the
// closed Hint enum and returns the raw text only for logging.
type Advisor interface {
	ReviewTrade(ctx context.Context, trade *models.TradeRecord, pnl float64) (string, error)
	StrategyHint(ctx context.Context, summary string) (models.Hint, string, error)
}

// Alerter delivers operational alerts. Implementations must never block the
// trading loop; failures are logged and swallowed.
type Alerter interface {
	Alert(ctx context.Context, subject, message string)
}

// Metrics records operational measurements.
type Metrics interface {
	RecordCycle(seconds float64)
	RecordTrade(pair, action string)
	RecordError(kind string)
	RecordLastPrice(pair string, price float64)
	RecordDailyPnl(pair string, pnl float64)
	RecordLatency(operation string, seconds float64)
}
