package usecase

import (
	"math"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

// Per-kind conviction caps. Caps bound the raw signal value before the agent
// weight is applied; weights never exceed 0.9, so capped values only shrink.
const (
	capMomentum   = 0.30
	capSentiment  = 0.045
	capMarketData = 0.065
	capMeta       = 0.125
	capSandbox    = 0.08

	momentumWindow  = 14
	momentumSellCut = 0.4
	volumeScale     = 1e6
)

// SignalEngine derives the five conviction signals for a pair from one
// market snapshot and its OHLC window. It owns the adaptive agents.
type SignalEngine struct {
	agents map[models.SignalKind]*Agent
	logger *logger.Logger
}

// NewSignalEngine creates an engine with one fresh agent per signal kind.
func NewSignalEngine(log *logger.Logger) *SignalEngine {
	agents := make(map[models.SignalKind]*Agent, len(models.SignalKinds))
	for _, kind := range models.SignalKinds {
		agents[kind] = NewAgent(string(kind))
	}
	return &SignalEngine{agents: agents, logger: log}
}

// Agent returns the agent backing a signal kind.
func (e *SignalEngine) Agent(kind models.SignalKind) *Agent {
	return e.agents[kind]
}

// ShiftHistories moves every agent's history by delta.
func (e *SignalEngine) ShiftHistories(delta float64) {
	for _, a := range e.agents {
		a.ShiftHistory(delta)
	}
}

// ReinforceNeutral appends one neutral score to every agent.
func (e *SignalEngine) ReinforceNeutral() {
	for _, a := range e.agents {
		a.UpdateHistory(neutralScore)
	}
}

// Compute produces all five signals for the snapshot. All division guards
// fall back to zero contributions so bad ticks degrade to weak signals
// instead of panics.
func (e *SignalEngine) Compute(snap *models.MarketSnapshot, bars []models.Bar) models.SignalSet {
	atrRatio := 0.0
	if snap.Price > 0 {
		atrRatio = snap.ATR / snap.Price
	}
	volTerm := snap.Volume / volumeScale
	extTerm := snap.ExternalVolume24 / volumeScale

	momentum := e.computeMomentum(bars, atrRatio, volTerm, extTerm)
	sentiment := e.computeSentiment(snap.Price, bars)
	market := e.computeMarketData(bars, atrRatio, volTerm, extTerm)
	sandbox := e.computeSandbox(market)
	meta := e.computeMeta(momentum, sentiment, market, sandbox)

	set := models.SignalSet{
		models.SignalMomentum:   momentum,
		models.SignalSentiment:  sentiment,
		models.SignalMarketData: market,
		models.SignalMeta:       meta,
		models.SignalSandbox:    sandbox,
	}

	for _, kind := range models.SignalKinds {
		sig := set[kind]
		e.logger.Debug("signal computed",
			logger.String("pair", snap.Pair),
			logger.String("kind", string(kind)),
			logger.Float64("conviction", sig.Conviction),
			logger.String("direction", string(sig.Direction)),
		)
	}
	return set
}

// computeMomentum scores the up-ratio of the last 14 closes. Under two
// closes the ratio is neutral 0.5.
func (e *SignalEngine) computeMomentum(bars []models.Bar, atrRatio, volTerm, extTerm float64) models.Signal {
	closes := lastCloses(bars, momentumWindow)
	u := 0.5
	if len(closes) >= 2 {
		ups := 0
		for i := 1; i < len(closes); i++ {
			if closes[i] > closes[i-1] {
				ups++
			}
		}
		u = float64(ups) / float64(len(closes)-1)
	}

	raw := math.Abs(u-0.5) + atrRatio + volTerm + extTerm
	dir := models.DirectionBuy
	if u < momentumSellCut {
		dir = models.DirectionSell
	}
	return e.finish(models.SignalMomentum, raw, capMomentum, dir)
}

// computeSentiment scores the price change against the first bar of the
// window. No window means no sentiment.
func (e *SignalEngine) computeSentiment(price float64, bars []models.Bar) models.Signal {
	change := 0.0
	if len(bars) > 0 && bars[0].Close > 0 {
		change = (price - bars[0].Close) / bars[0].Close
	}
	dir := models.DirectionSell
	if change > 0 {
		dir = models.DirectionBuy
	}
	return e.finish(models.SignalSentiment, math.Abs(change), capSentiment, dir)
}

// computeMarketData scores the close-to-close change of the last bar.
func (e *SignalEngine) computeMarketData(bars []models.Bar, atrRatio, volTerm, extTerm float64) models.Signal {
	lastChange := 0.0
	if n := len(bars); n >= 2 && bars[n-2].Close > 0 {
		lastChange = (bars[n-1].Close - bars[n-2].Close) / bars[n-2].Close
	}
	raw := math.Abs(lastChange) + volTerm + atrRatio + extTerm
	dir := models.DirectionBuy
	if lastChange < 0 {
		dir = models.DirectionSell
	}
	return e.finish(models.SignalMarketData, raw, capMarketData, dir)
}

// computeMeta averages the other signals' convictions and follows momentum.
func (e *SignalEngine) computeMeta(momentum, sentiment, market, sandbox models.Signal) models.Signal {
	mean := (momentum.Conviction + sentiment.Conviction + market.Conviction + sandbox.Conviction) / 4
	return e.finish(models.SignalMeta, mean, capMeta, momentum.Direction)
}

// computeSandbox shadows the market-data signal at a discount and argues the
// opposite side.
func (e *SignalEngine) computeSandbox(market models.Signal) models.Signal {
	return e.finish(models.SignalSandbox, market.Conviction*0.9, capSandbox, market.Direction.Opposite())
}

func (e *SignalEngine) finish(kind models.SignalKind, raw, cap float64, dir models.Direction) models.Signal {
	return models.Signal{
		Kind:       kind,
		Conviction: math.Min(raw, cap) * e.agents[kind].Weight(),
		Direction:  dir,
	}
}

func lastCloses(bars []models.Bar, n int) []float64 {
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
