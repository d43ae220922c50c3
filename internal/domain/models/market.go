package models

import "time"

// Bar is a single OHLC candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketSnapshot is the per-pair input of one decision cycle.
type MarketSnapshot struct {
	Pair             string    `json:"pair"`
	Price            float64   `json:"price"`
	Volume           float64   `json:"volume"`
	ATR              float64   `json:"atr"`
	ExternalVolume24 float64   `json:"external_volume_24h"`
	Time             time.Time `json:"time"`
}

// ExternalAggregate carries metrics from providers outside the exchange.
type ExternalAggregate struct {
	Volume24h float64 `json:"volume_24h"`
	MarketCap float64 `json:"market_cap"`
}
