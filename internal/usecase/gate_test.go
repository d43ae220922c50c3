package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TradePulse/internal/domain/models"
)

func alignedSet(dir models.Direction, conviction float64) models.SignalSet {
	set := make(models.SignalSet, len(models.SignalKinds))
	for _, kind := range models.SignalKinds {
		set[kind] = models.Signal{Kind: kind, Conviction: conviction, Direction: dir}
	}
	return set
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestGatePrimaryRule(t *testing.T) {
	gate := NewConvictionGate(2)
	decision := gate.Evaluate(alignedSet(models.DirectionBuy, 0.04), at(10), DayState{}, 1000)

	assert.True(t, decision.Enter)
	assert.Equal(t, RulePrimary, decision.Rule)
	assert.Equal(t, models.DirectionBuy, decision.Direction)
	assert.InDelta(t, 500.0, decision.Size, 1e-9, "notional splits the quote balance across pairs")
}

func TestGatePrimaryBoundary(t *testing.T) {
	gate := NewConvictionGate(1)

	hit := gate.Evaluate(alignedSet(models.DirectionBuy, 0.03), at(10), DayState{}, 100)
	assert.True(t, hit.Enter)
	assert.Equal(t, RulePrimary, hit.Rule)

	miss := gate.Evaluate(alignedSet(models.DirectionBuy, 0.029), at(10), DayState{}, 100)
	assert.False(t, miss.Enter)
	assert.Equal(t, RuleNone, miss.Rule)
}

func TestGateRejectsMisalignment(t *testing.T) {
	gate := NewConvictionGate(1)
	set := alignedSet(models.DirectionBuy, 0.05)
	set[models.SignalSandbox] = models.Signal{
		Kind:       models.SignalSandbox,
		Conviction: 0.05,
		Direction:  models.DirectionSell,
	}

	decision := gate.Evaluate(set, at(10), DayState{}, 100)
	assert.False(t, decision.Enter)
}

func TestGateWeakestSignalDecides(t *testing.T) {
	gate := NewConvictionGate(1)
	set := alignedSet(models.DirectionBuy, 0.2)
	set[models.SignalSentiment] = models.Signal{
		Kind:       models.SignalSentiment,
		Conviction: 0.01,
		Direction:  models.DirectionBuy,
	}

	decision := gate.Evaluate(set, at(10), DayState{}, 100)
	assert.False(t, decision.Enter, "one weak signal holds the whole entry")
}

func TestGateLateSessionFallback(t *testing.T) {
	gate := NewConvictionGate(1)
	set := alignedSet(models.DirectionBuy, 0.026)

	decision := gate.Evaluate(set, at(23), DayState{TradeCount: 0}, 100)
	assert.True(t, decision.Enter)
	assert.Equal(t, RuleLateSession, decision.Rule)

	// already traded today: the late-session rule stays closed
	traded := gate.Evaluate(set, at(23), DayState{TradeCount: 1, PnL: 0.01}, 100)
	assert.False(t, traded.Enter)

	// same conviction before the final hour holds
	early := gate.Evaluate(set, at(22), DayState{TradeCount: 0}, 100)
	assert.False(t, early.Enter)
}

func TestGateRiskOnCatchUp(t *testing.T) {
	gate := NewConvictionGate(1)
	set := alignedSet(models.DirectionBuy, 0.026)

	decision := gate.Evaluate(set, at(10), DayState{TradeCount: 1, PnL: 0.01}, 100)
	assert.True(t, decision.Enter)
	assert.Equal(t, RuleRiskOn, decision.Rule)

	// the daily target is met, no reason to press
	met := gate.Evaluate(set, at(10), DayState{TradeCount: 1, PnL: 0.02}, 100)
	assert.False(t, met.Enter)

	// no trade yet today: catch-up never opens the book
	fresh := gate.Evaluate(set, at(10), DayState{TradeCount: 0, PnL: 0}, 100)
	assert.False(t, fresh.Enter)

	// the final hour belongs to the late-session rule alone
	late := gate.Evaluate(set, at(23), DayState{TradeCount: 1, PnL: 0.01}, 100)
	assert.False(t, late.Enter)
}

func TestGateSellConsensusStillDecided(t *testing.T) {
	gate := NewConvictionGate(1)
	decision := gate.Evaluate(alignedSet(models.DirectionSell, 0.05), at(10), DayState{}, 100)

	assert.True(t, decision.Enter)
	assert.Equal(t, models.DirectionSell, decision.Direction)
}
