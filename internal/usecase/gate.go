package usecase

import (
	"time"

	"TradePulse/internal/domain/models"
)

// Gate thresholds and the daily growth target.
const (
	primaryThreshold  = 0.03
	fallbackThreshold = 0.025
	DailyTarget       = 0.015
	lateSessionHour   = 23
)

// GateRule names which entry rule fired, for logging and alerts.
type GateRule string

const (
	RuleNone        GateRule = ""
	RulePrimary     GateRule = "primary"
	RuleLateSession GateRule = "late_session"
	RuleRiskOn      GateRule = "risk_on"
)

// GateDecision is the outcome of one gate evaluation for one pair.
type GateDecision struct {
	Enter     bool
	Rule      GateRule
	Direction models.Direction
	Size      float64
}

// DayState is the tracker's per-pair view the gate needs.
type DayState struct {
	PnL        float64
	TradeCount int
}

// ConvictionGate decides entries from the aligned signal set. Exits are the
// position machine's concern; the gate only opens.
type ConvictionGate struct {
	pairCount int
}

// NewConvictionGate creates a gate sized for the configured pair set.
func NewConvictionGate(pairCount int) *ConvictionGate {
	if pairCount < 1 {
		pairCount = 1
	}
	return &ConvictionGate{pairCount: pairCount}
}

// Evaluate runs the primary rule, then the late-session fallback, then the
// risk-on catch-up. The first rule that passes wins; every rule requires all
// five signals aligned to the momentum direction.
func (g *ConvictionGate) Evaluate(signals models.SignalSet, now time.Time, day DayState, quoteBalance float64) GateDecision {
	dir := signals[models.SignalMomentum].Direction
	hold := GateDecision{Enter: false, Rule: RuleNone, Direction: dir}

	if !signals.Aligned(dir) {
		return hold
	}
	weakest := signals.MinConviction()
	size := quoteBalance / float64(g.pairCount)

	switch {
	case weakest >= primaryThreshold:
		return GateDecision{Enter: true, Rule: RulePrimary, Direction: dir, Size: size}
	case day.TradeCount == 0 && now.Hour() >= lateSessionHour && weakest >= fallbackThreshold:
		return GateDecision{Enter: true, Rule: RuleLateSession, Direction: dir, Size: size}
	case day.PnL < DailyTarget && day.TradeCount >= 1 && now.Hour() < lateSessionHour && weakest >= fallbackThreshold:
		return GateDecision{Enter: true, Rule: RuleRiskOn, Direction: dir, Size: size}
	default:
		return hold
	}
}
