package usecase

import (
	"fmt"
	"math"
	"time"

	"TradePulse/internal/domain/models"
)

// Exit rule parameters.
const (
	takeProfitFloor = 0.015
	stopLossCeiling = 0.02
	exitFee         = 0.004
	atrExitFactor   = 2.0
)

// ExitReason says why a long position should close.
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
)

// ErrNotFlat and ErrNotLong guard the strict flat->long->flat lifecycle.
var (
	ErrNotFlat = fmt.Errorf("position: already open")
	ErrNotLong = fmt.Errorf("position: nothing to close")
)

// Position is one pair's lifecycle state. Entry fields are only set after a
// confirmed order id, so a failed buy leaves the position flat.
type Position struct {
	pair       string
	state      models.PositionState
	entryPrice float64
	size       float64
	entryTime  time.Time
}

// NewPosition creates a flat position for a pair.
func NewPosition(pair string) *Position {
	return &Position{pair: pair, state: models.StateFlat}
}

func (p *Position) Pair() string                { return p.pair }
func (p *Position) State() models.PositionState { return p.state }
func (p *Position) EntryPrice() float64         { return p.entryPrice }
func (p *Position) Size() float64               { return p.size }

// IsLong reports whether the position is open.
func (p *Position) IsLong() bool {
	return p.state == models.StateLong
}

// Open transitions flat->long. Callers must hold a confirmed order id.
func (p *Position) Open(price, size float64, at time.Time) error {
	if p.state != models.StateFlat {
		return ErrNotFlat
	}
	p.state = models.StateLong
	p.entryPrice = price
	p.size = size
	p.entryTime = at
	return nil
}

// Close transitions long->flat and clears entry bookkeeping.
func (p *Position) Close() error {
	if p.state != models.StateLong {
		return ErrNotLong
	}
	p.state = models.StateFlat
	p.entryPrice = 0
	p.size = 0
	p.entryTime = time.Time{}
	return nil
}

// ExitCheck is the outcome of evaluating a long position against the
// current price. Realized is the PnL fraction booked if the exit fires.
type ExitCheck struct {
	Reason   ExitReason
	PnLPct   float64
	Realized float64
}

// EvaluateExit applies the take-profit rule before the stop-loss rule.
// Take-profit realizes pnl minus the round-trip fee; stop-loss realizes the
// raw loss. A non-positive entry price never exits (bad reconstruction data).
func (p *Position) EvaluateExit(price, atr float64) ExitCheck {
	if p.state != models.StateLong || p.entryPrice <= 0 {
		return ExitCheck{Reason: ExitNone}
	}
	pnlPct := (price - p.entryPrice) / p.entryPrice

	atrRatio := 0.0
	if price > 0 {
		atrRatio = atr / price
	}
	takeProfit := math.Max(takeProfitFloor, atrExitFactor*atrRatio)
	stopLoss := math.Min(stopLossCeiling, atrExitFactor*atrRatio)

	switch {
	case pnlPct >= takeProfit:
		return ExitCheck{Reason: ExitTakeProfit, PnLPct: pnlPct, Realized: pnlPct - exitFee}
	case pnlPct <= -stopLoss:
		return ExitCheck{Reason: ExitStopLoss, PnLPct: pnlPct, Realized: pnlPct}
	default:
		return ExitCheck{Reason: ExitNone, PnLPct: pnlPct}
	}
}

// View returns the API snapshot of the position.
func (p *Position) View() models.PositionView {
	return models.PositionView{
		Pair:       p.pair,
		State:      p.state,
		EntryPrice: p.entryPrice,
		Size:       p.size,
		EntryTime:  p.entryTime,
	}
}

// ReconstructPositions rebuilds per-pair state from the trade log after a
// restart. The most recent trade decides: an unmatched buy means the
// position is still long at that trade's price and amount.
func ReconstructPositions(pairs []string, trades []*models.TradeRecord) map[string]*Position {
	positions := make(map[string]*Position, len(pairs))
	for _, pair := range pairs {
		positions[pair] = NewPosition(pair)
	}
	seen := make(map[string]bool, len(pairs))
	// trades arrive newest first; the first hit per pair is the latest trade
	for _, tr := range trades {
		pos, ok := positions[tr.Pair]
		if !ok || seen[tr.Pair] {
			continue
		}
		seen[tr.Pair] = true
		if tr.Action == models.ActionBuy {
			_ = pos.Open(tr.Price, tr.Amount, tr.Timestamp)
		}
	}
	return positions
}
