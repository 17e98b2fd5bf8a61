package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "igfx_ticks_total",
			Help: "Total number of completed scheduler ticks.",
		},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igfx_signals_total",
			Help: "Total number of strategy signals (by symbol and side).",
		},
		[]string{"symbol", "side"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igfx_orders_submitted_total",
			Help: "Total number of market orders submitted (by symbol).",
		},
		[]string{"symbol"},
	)

	TradesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igfx_trades_skipped_total",
			Help: "Total number of trade setups skipped (by reason).",
		},
		[]string{"reason"},
	)

	DailyTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "igfx_daily_trades",
			Help: "Trades taken since the last UTC day rollover.",
		},
	)

	DailyLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "igfx_daily_loss",
			Help: "Realized loss accumulated since the last UTC day rollover.",
		},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, OrdersSubmitted, TradesSkipped, DailyTrades, DailyLoss)
}

// Serve exposes /metrics on addr. It blocks, so run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
