package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/cache"
)

const (
	tradeListKey   = "trades"
	tradeListLimit = 1000
	pnlKeyPrefix   = "pnl:"
)

// RedisStore is the fast local trade store. It keeps a bounded recent-trades
// list and one hash per day of per-pair PnL rows.
type RedisStore struct {
	cache *cache.RedisCache
}

// NewRedisStore creates the fast store on a connected cache.
func NewRedisStore(c *cache.RedisCache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) key(k string) string {
	return "tradepulse:" + k
}

func (s *RedisStore) AppendTrade(ctx context.Context, trade *models.TradeRecord) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("redis marshal trade: %w", err)
	}
	client := s.cache.Client()
	pipe := client.TxPipeline()
	pipe.LPush(ctx, s.key(tradeListKey), data)
	pipe.LTrim(ctx, s.key(tradeListKey), 0, tradeListLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append trade: %w", err)
	}
	return nil
}

func (s *RedisStore) UpsertDailyPnl(ctx context.Context, row *models.DailyPnL) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("redis marshal daily pnl: %w", err)
	}
	key := s.key(pnlKeyPrefix + row.Date)
	if err := s.cache.Client().HSet(ctx, key, row.Pair, data).Err(); err != nil {
		return fmt.Errorf("redis upsert daily pnl: %w", err)
	}
	return nil
}

func (s *RedisStore) LastTrades(ctx context.Context, n int) ([]*models.TradeRecord, error) {
	vals, err := s.cache.Client().LRange(ctx, s.key(tradeListKey), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis last trades: %w", err)
	}
	trades := make([]*models.TradeRecord, 0, len(vals))
	for _, v := range vals {
		var tr models.TradeRecord
		if err := json.Unmarshal([]byte(v), &tr); err != nil {
			continue
		}
		trades = append(trades, &tr)
	}
	return trades, nil
}

func (s *RedisStore) SumPnlByPair(ctx context.Context) (map[string]float64, error) {
	client := s.cache.Client()
	sums := make(map[string]float64)

	var cursor uint64
	pattern := s.key(pnlKeyPrefix) + "*"
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan pnl keys: %w", err)
		}
		for _, key := range keys {
			rows, err := client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("redis read pnl hash: %w", err)
			}
			for pair, raw := range rows {
				var row models.DailyPnL
				if err := json.Unmarshal([]byte(raw), &row); err != nil {
					continue
				}
				sums[pair] += row.PnL
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return sums, nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.cache.Client().Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.cache.Close()
}
