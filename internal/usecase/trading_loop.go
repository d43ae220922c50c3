package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"
)

// LoopConfig tunes the decision loop. The pair set is fixed for the process
// lifetime; nothing in the loop mutates it.
type LoopConfig struct {
	Pairs           []string
	Interval        time.Duration
	ErrorBackoff    time.Duration
	MinQuoteBalance float64
	OHLCDays        int
	DryRun          bool
}

func (c *LoopConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 60 * time.Second
	}
	if c.OHLCDays <= 0 {
		c.OHLCDays = 30
	}
}

const (
	reconstructDepth  = 200
	priceHistoryLimit = 100
	volFocusFactor    = 1.5
	windowMaxAge      = time.Hour
)

// TradingLoop runs the sequential decide-and-act cycle over the configured
// pairs. One cycle: roll the day tracker, then per pair fetch metrics,
// compute signals, and either evaluate exits (long) or the entry gate
// (flat); finally fold advisory feedback into the agents.
type TradingLoop struct {
	cfg LoopConfig

	market   repository.MarketData
	external repository.ExternalData
	balances repository.Balances
	orders   repository.OrderExecutor
	store    repository.TradeStore
	advisor  repository.Advisor
	alerter  repository.Alerter
	metrics  repository.Metrics
	logger   *logger.Logger

	engine   *SignalEngine
	gate     *ConvictionGate
	tracker  *DailyTracker
	feedback *FeedbackLoop

	mu        sync.RWMutex
	positions map[string]*Position

	windows   map[string][]models.Bar
	loadedAt  map[string]time.Time
	priceHist map[string][]float64
}

// NewTradingLoop assembles the loop. Collaborators must be non-nil; the
// advisor and alerter may be no-op implementations.
func NewTradingLoop(
	cfg LoopConfig,
	market repository.MarketData,
	external repository.ExternalData,
	balances repository.Balances,
	orders repository.OrderExecutor,
	store repository.TradeStore,
	advisor repository.Advisor,
	alerter repository.Alerter,
	metrics repository.Metrics,
	engine *SignalEngine,
	gate *ConvictionGate,
	tracker *DailyTracker,
	feedback *FeedbackLoop,
	log *logger.Logger,
) *TradingLoop {
	cfg.applyDefaults()
	return &TradingLoop{
		cfg:       cfg,
		market:    market,
		external:  external,
		balances:  balances,
		orders:    orders,
		store:     store,
		advisor:   advisor,
		alerter:   alerter,
		metrics:   metrics,
		engine:    engine,
		gate:      gate,
		tracker:   tracker,
		feedback:  feedback,
		logger:    log,
		positions: make(map[string]*Position, len(cfg.Pairs)),
		windows:   make(map[string][]models.Bar, len(cfg.Pairs)),
		loadedAt:  make(map[string]time.Time, len(cfg.Pairs)),
		priceHist: make(map[string][]float64, len(cfg.Pairs)),
	}
}

// Run bootstraps state from the trade log and then cycles until the context
// is cancelled. Cycle errors never terminate the loop; they log, alert and
// back off before the next attempt.
func (l *TradingLoop) Run(ctx context.Context) error {
	if err := l.bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	for {
		start := time.Now()
		wait := l.cfg.Interval

		if err := l.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("cycle failed", logger.Error(err))
			l.metrics.RecordError("cycle")
			l.alerter.Alert(ctx, "cycle error", err.Error())
			wait = l.cfg.ErrorBackoff
		} else {
			l.metrics.RecordCycle(time.Since(start).Seconds())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *TradingLoop) bootstrap(ctx context.Context) error {
	mode := "live"
	if l.cfg.DryRun {
		mode = "dry-run"
	}
	l.logger.Info("trading loop starting",
		logger.String("mode", mode),
		logger.Strings("pairs", l.cfg.Pairs),
		logger.Duration("interval", l.cfg.Interval),
	)

	trades, err := l.store.LastTrades(ctx, reconstructDepth)
	if err != nil {
		return fmt.Errorf("load trade log: %w", err)
	}

	l.mu.Lock()
	l.positions = ReconstructPositions(l.cfg.Pairs, trades)
	for _, pos := range l.positions {
		if pos.IsLong() {
			l.logger.Info("position reconstructed",
				logger.String("pair", pos.Pair()),
				logger.Float64("entry_price", pos.EntryPrice()),
				logger.Float64("size", pos.Size()),
			)
		}
	}
	l.mu.Unlock()

	for _, pair := range l.cfg.Pairs {
		if err := l.loadWindow(ctx, pair); err != nil {
			return err
		}
	}
	return nil
}

func (l *TradingLoop) runCycle(ctx context.Context) error {
	now := time.Now()
	if err := l.tracker.Roll(ctx, now); err != nil {
		return err
	}

	for _, pair := range l.orderedPairs() {
		if err := l.processPair(ctx, pair); err != nil {
			return fmt.Errorf("pair %s: %w", pair, err)
		}
	}

	l.applyAdvice(ctx, now)
	return nil
}

func (l *TradingLoop) processPair(ctx context.Context, pair string) error {
	snap, err := l.market.Snapshot(ctx, pair)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	// external providers soften to zeros, they must never stall a cycle
	ext, err := l.external.Aggregate(ctx, pair)
	if err != nil {
		l.logger.Warn("external aggregate unavailable",
			logger.String("pair", pair), logger.Error(err))
		l.metrics.RecordError("external_data")
		ext = models.ExternalAggregate{}
	}
	snap.ExternalVolume24 = ext.Volume24h

	l.metrics.RecordLastPrice(pair, snap.Price)
	l.recordPrice(pair, snap.Price)

	if err := l.refreshWindowIfStale(ctx, pair); err != nil {
		return err
	}
	signals := l.engine.Compute(snap, l.windows[pair])

	pos := l.position(pair)
	if pos.IsLong() {
		return l.handleLong(ctx, pos, snap, signals)
	}
	return l.handleFlat(ctx, pos, snap, signals)
}

func (l *TradingLoop) handleLong(ctx context.Context, pos *Position, snap *models.MarketSnapshot, _ models.SignalSet) error {
	check := pos.EvaluateExit(snap.Price, snap.ATR)
	if check.Reason == ExitNone {
		l.logger.Debug("holding position",
			logger.String("pair", pos.Pair()),
			logger.Float64("pnl_pct", check.PnLPct),
		)
		return nil
	}

	pair := pos.Pair()
	amount := pos.Size()
	orderID, err := l.orders.PlaceSell(ctx, pair, amount, snap.Price)
	if err != nil {
		// order failure abandons this pair for the cycle, state untouched
		l.logger.Error("sell order failed",
			logger.String("pair", pair), logger.Error(err))
		l.metrics.RecordError("order_sell")
		l.alerter.Alert(ctx, "sell order failed", fmt.Sprintf("%s: %v", pair, err))
		return nil
	}

	l.mu.Lock()
	err = pos.Close()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Info("position closed",
		logger.String("pair", pair),
		logger.String("reason", string(check.Reason)),
		logger.Float64("pnl_pct", check.PnLPct),
		logger.Float64("realized", check.Realized),
		logger.String("order_id", orderID),
	)
	l.metrics.RecordTrade(pair, string(models.ActionSell))

	trade := &models.TradeRecord{
		Timestamp: time.Now(),
		Pair:      pair,
		Action:    models.ActionSell,
		Amount:    amount,
		Price:     snap.Price,
		OrderID:   orderID,
	}
	if err := l.store.AppendTrade(ctx, trade); err != nil {
		return fmt.Errorf("append sell trade: %w", err)
	}
	if err := l.tracker.RecordClose(ctx, pair, check.Realized); err != nil {
		return err
	}
	l.reviewTrade(ctx, trade, check.Realized)

	return l.loadWindow(ctx, pair)
}

func (l *TradingLoop) handleFlat(ctx context.Context, pos *Position, snap *models.MarketSnapshot, signals models.SignalSet) error {
	pair := pos.Pair()
	now := time.Now()

	quote, err := l.balances.QuoteBalance(ctx)
	if err != nil {
		return fmt.Errorf("quote balance: %w", err)
	}

	decision := l.gate.Evaluate(signals, now, l.tracker.Day(pair), quote)
	if !decision.Enter {
		return nil
	}
	if decision.Direction != models.DirectionBuy {
		// long-only book: an aligned sell consensus with no position holds
		l.logger.Debug("sell consensus while flat, holding",
			logger.String("pair", pair))
		return nil
	}
	if quote <= l.cfg.MinQuoteBalance {
		l.logger.Warn("entry skipped, quote balance too low",
			logger.String("pair", pair),
			logger.Float64("balance", quote),
		)
		return nil
	}
	if snap.Price <= 0 {
		return nil
	}

	amount := decision.Size / snap.Price
	orderID, err := l.orders.PlaceBuy(ctx, pair, amount, snap.Price)
	if err != nil {
		l.logger.Error("buy order failed",
			logger.String("pair", pair), logger.Error(err))
		l.metrics.RecordError("order_buy")
		l.alerter.Alert(ctx, "buy order failed", fmt.Sprintf("%s: %v", pair, err))
		return nil
	}

	l.mu.Lock()
	err = pos.Open(snap.Price, amount, now)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Info("position opened",
		logger.String("pair", pair),
		logger.String("rule", string(decision.Rule)),
		logger.Float64("price", snap.Price),
		logger.Float64("amount", amount),
		logger.Float64("notional", decision.Size),
		logger.String("order_id", orderID),
	)
	l.metrics.RecordTrade(pair, string(models.ActionBuy))
	l.tracker.RecordEntry(pair)

	trade := &models.TradeRecord{
		Timestamp: now,
		Pair:      pair,
		Action:    models.ActionBuy,
		Amount:    amount,
		Price:     snap.Price,
		OrderID:   orderID,
	}
	if err := l.store.AppendTrade(ctx, trade); err != nil {
		return fmt.Errorf("append buy trade: %w", err)
	}
	l.reviewTrade(ctx, trade, 0)

	return l.loadWindow(ctx, pair)
}

// applyAdvice asks the advisor for a strategy hint and feeds it to the
// agents. Advisory failures degrade to a neutral hint.
func (l *TradingLoop) applyAdvice(ctx context.Context, now time.Time) {
	summary := fmt.Sprintf("date=%s pairs=%d", l.tracker.Date(), len(l.cfg.Pairs))
	hint, text, err := l.advisor.StrategyHint(ctx, summary)
	if err != nil {
		l.logger.Debug("strategy hint unavailable", logger.Error(err))
		hint = models.HintNeutral
	} else if text != "" {
		l.logger.Info("strategy review",
			logger.String("hint", hint.String()),
			logger.String("text", text),
		)
	}
	l.feedback.Apply(hint, now)
}

func (l *TradingLoop) reviewTrade(ctx context.Context, trade *models.TradeRecord, pnl float64) {
	text, err := l.advisor.ReviewTrade(ctx, trade, pnl)
	if err != nil || text == "" {
		return
	}
	l.logger.Info("trade review",
		logger.String("pair", trade.Pair),
		logger.String("text", text),
	)
}

func (l *TradingLoop) loadWindow(ctx context.Context, pair string) error {
	bars, err := l.market.OHLC(ctx, pair, l.cfg.OHLCDays)
	if err != nil {
		return fmt.Errorf("load ohlc window: %w", err)
	}
	l.windows[pair] = bars
	l.loadedAt[pair] = time.Now()
	return nil
}

func (l *TradingLoop) refreshWindowIfStale(ctx context.Context, pair string) error {
	if time.Since(l.loadedAt[pair]) < windowMaxAge {
		return nil
	}
	return l.loadWindow(ctx, pair)
}

func (l *TradingLoop) position(pair string) *Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positions[pair]
}

// PositionsSnapshot returns the current per-pair views in configured order.
func (l *TradingLoop) PositionsSnapshot() []models.PositionView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	views := make([]models.PositionView, 0, len(l.cfg.Pairs))
	for _, pair := range l.cfg.Pairs {
		if pos, ok := l.positions[pair]; ok {
			views = append(views, pos.View())
		}
	}
	return views
}

func (l *TradingLoop) recordPrice(pair string, price float64) {
	hist := append(l.priceHist[pair], price)
	if len(hist) > priceHistoryLimit {
		hist = hist[1:]
	}
	l.priceHist[pair] = hist
}

// orderedPairs puts unusually volatile pairs first so they are decided on
// the freshest data. The configured set itself never changes.
func (l *TradingLoop) orderedPairs() []string {
	devs := make(map[string]float64, len(l.cfg.Pairs))
	total := 0.0
	for _, pair := range l.cfg.Pairs {
		devs[pair] = stddev(l.priceHist[pair])
		total += devs[pair]
	}
	avg := total / float64(len(l.cfg.Pairs))

	ordered := make([]string, len(l.cfg.Pairs))
	copy(ordered, l.cfg.Pairs)
	if avg <= 0 {
		return ordered
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		hotI := devs[ordered[i]] > volFocusFactor*avg
		hotJ := devs[ordered[j]] > volFocusFactor*avg
		return hotI && !hotJ
	})
	return ordered
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
