package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	dailyPnl      *prometheus.GaugeVec
	cycleDuration prometheus.Histogram
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_trades_total",
				Help: "Total number of executed trades",
			},
			[]string{"pair", "action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepulse_last_price",
				Help: "Last recorded price for a pair",
			},
			[]string{"pair"},
		),
		dailyPnl: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepulse_daily_pnl",
				Help: "Running realized PnL fraction for the current day",
			},
			[]string{"pair"},
		),
		cycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradepulse_cycle_duration_seconds",
				Help:    "Duration of full decision cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a completed decision cycle.
func (r *Recorder) RecordCycle(seconds float64) {
	r.cycleDuration.Observe(seconds)
}

// RecordTrade records an executed trade.
func (r *Recorder) RecordTrade(pair, action string) {
	r.tradesTotal.WithLabelValues(pair, action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a pair.
func (r *Recorder) RecordLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

// RecordDailyPnl records the running daily PnL for a pair.
func (r *Recorder) RecordDailyPnl(pair string, pnl float64) {
	r.dailyPnl.WithLabelValues(pair).Set(pnl)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
