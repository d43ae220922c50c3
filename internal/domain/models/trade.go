package models

import "time"

// Action is the executed side of a trade.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// TradeRecord is one executed order as persisted.
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Pair      string    `json:"pair"`
	Action    Action    `json:"action"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	OrderID   string    `json:"order_id"`
}

// DailyPnL is the per-pair daily performance row. Upserts replace, never sum.
type DailyPnL struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Pair       string  `json:"pair"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
}
