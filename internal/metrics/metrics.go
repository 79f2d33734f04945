package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signal_cycles_total", Help: "Completed evaluation cycles"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_signals_total", Help: "Signals that opened a trade"},
		[]string{"symbol", "side"},
	)
	TradesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trades_closed_total", Help: "Trades resolved to TP or SL"},
		[]string{"symbol", "status"},
	)
	InstrumentErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_instrument_errors_total", Help: "Per-symbol failures by kind"},
		[]string{"symbol", "kind"},
	)
	CycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "signal_cycle_seconds", Help: "Cycle duration", Buckets: prometheus.DefBuckets},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, SignalsTotal, TradesClosedTotal, InstrumentErrorsTotal, CycleSeconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
