package models

// Direction is the side a signal argues for.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Opposite flips buy/sell.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// SignalKind names one of the fixed conviction signals.
type SignalKind string

const (
	SignalMomentum   SignalKind = "momentum"
	SignalSentiment  SignalKind = "sentiment"
	SignalMarketData SignalKind = "marketdata"
	SignalMeta       SignalKind = "meta"
	SignalSandbox    SignalKind = "sandbox"
)

// SignalKinds is the fixed evaluation order.
var SignalKinds = []SignalKind{
	SignalMomentum,
	SignalSentiment,
	SignalMarketData,
	SignalMeta,
	SignalSandbox,
}

// Signal is one weighted conviction vote.
type Signal struct {
	Kind       SignalKind `json:"kind"`
	Conviction float64    `json:"conviction"`
	Direction  Direction  `json:"direction"`
}

// SignalSet holds the full per-cycle signal readout for a pair.
type SignalSet map[SignalKind]Signal

// Aligned reports whether every signal argues for dir.
func (s SignalSet) Aligned(dir Direction) bool {
	for _, sig := range s {
		if sig.Direction != dir {
			return false
		}
	}
	return len(s) > 0
}

// MinConviction returns the weakest conviction in the set.
func (s SignalSet) MinConviction() float64 {
	first := true
	min := 0.0
	for _, sig := range s {
		if first || sig.Conviction < min {
			min = sig.Conviction
			first = false
		}
	}
	return min
}
