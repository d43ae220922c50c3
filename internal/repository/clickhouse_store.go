package repository

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/clickhouse"
	"TradePulse/pkg/logger"
)

// Schema is the DDL ensured at startup via InitSchema. daily_pnl uses a
// replacing merge tree keyed by (date, pair) so upserts are last-write-wins.
var Schema = []string{
	"CREATE DATABASE IF NOT EXISTS tradepulse",
	`CREATE TABLE IF NOT EXISTS tradepulse.trades (
		ts DateTime64(3),
		pair String,
		action String,
		amount Float64,
		price Float64,
		order_id String
	) ENGINE=MergeTree ORDER BY (pair, ts)`,
	`CREATE TABLE IF NOT EXISTS tradepulse.daily_pnl (
		date Date,
		pair String,
		pnl Float64,
		trade_count UInt32,
		updated_at DateTime DEFAULT now()
	) ENGINE=ReplacingMergeTree(updated_at) ORDER BY (date, pair)`,
}

// ClickHouseStore is the durable trade store.
type ClickHouseStore struct {
	client *clickhouse.Client
	logger *logger.Logger
}

// NewClickHouseStore creates the durable store on an initialized client.
func NewClickHouseStore(client *clickhouse.Client, log *logger.Logger) *ClickHouseStore {
	return &ClickHouseStore{client: client, logger: log}
}

func (s *ClickHouseStore) AppendTrade(ctx context.Context, trade *models.TradeRecord) error {
	query := `INSERT INTO tradepulse.trades (ts, pair, action, amount, price, order_id) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.client.DB().ExecContext(ctx, query,
		trade.Timestamp, trade.Pair, string(trade.Action), trade.Amount, trade.Price, trade.OrderID)
	if err != nil {
		return fmt.Errorf("clickhouse insert trade: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) UpsertDailyPnl(ctx context.Context, row *models.DailyPnL) error {
	query := `INSERT INTO tradepulse.daily_pnl (date, pair, pnl, trade_count, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.client.DB().ExecContext(ctx, query,
		row.Date, row.Pair, row.PnL, uint32(row.TradeCount), time.Now())
	if err != nil {
		return fmt.Errorf("clickhouse upsert daily pnl: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) LastTrades(ctx context.Context, n int) ([]*models.TradeRecord, error) {
	query := `SELECT ts, pair, action, amount, price, order_id FROM tradepulse.trades ORDER BY ts DESC LIMIT ?`
	rows, err := s.client.DB().QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("clickhouse last trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		var tr models.TradeRecord
		var action string
		if err := rows.Scan(&tr.Timestamp, &tr.Pair, &action, &tr.Amount, &tr.Price, &tr.OrderID); err != nil {
			return nil, fmt.Errorf("clickhouse scan trade: %w", err)
		}
		tr.Action = models.Action(action)
		trades = append(trades, &tr)
	}
	return trades, rows.Err()
}

func (s *ClickHouseStore) SumPnlByPair(ctx context.Context) (map[string]float64, error) {
	query := `SELECT pair, sum(pnl) FROM tradepulse.daily_pnl FINAL GROUP BY pair`
	rows, err := s.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("clickhouse sum pnl: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var pair string
		var pnl float64
		if err := rows.Scan(&pair, &pnl); err != nil {
			return nil, fmt.Errorf("clickhouse scan pnl: %w", err)
		}
		sums[pair] = pnl
	}
	return sums, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}
