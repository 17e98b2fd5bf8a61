// Package runner drives the trading loop: on each tick it refreshes risk
// state, fetches candles per instrument, evaluates the strategy and walks
// any signal through sizing, confirmation and order submission.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/igfx/broker"
	"github.com/rustyeddy/igfx/config"
	"github.com/rustyeddy/igfx/market"
	"github.com/rustyeddy/igfx/metrics"
	"github.com/rustyeddy/igfx/notify"
	"github.com/rustyeddy/igfx/pkg/id"
	"github.com/rustyeddy/igfx/risk"
	"github.com/rustyeddy/igfx/sink"
	"github.com/rustyeddy/igfx/strategies"
)

// Notifier is the slice of notify.Telegram the runner needs. Nil disables
// notifications and confirmation (every signal is treated as approved).
type Notifier interface {
	RequestConfirmation(ctx context.Context, a notify.Alert) bool
	NotifyExecution(e notify.Execution)
	SendMessage(text string)
}

// Runner owns the scheduler loop. A single goroutine executes ticks;
// instruments within a tick run sequentially, and a confirmation wait
// blocks the tick it belongs to.
type Runner struct {
	cfg        *config.Config
	broker     broker.Broker
	sink       sink.Sink // nil when persistence is disabled
	notifier   Notifier  // nil when telegram is disabled
	risk       *risk.Manager
	strategies map[string]strategies.Strategy
	log        zerolog.Logger

	now func() time.Time // stubbed in tests

	lastDay       time.Time
	lastReconcile time.Time
}

// New builds a runner, instantiating one strategy per instrument so state
// never leaks between symbols.
func New(cfg *config.Config, b broker.Broker, s sink.Sink, n Notifier, rm *risk.Manager, log zerolog.Logger) (*Runner, error) {
	strats := make(map[string]strategies.Strategy, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Params)
		if err != nil {
			return nil, fmt.Errorf("strategy for %s: %w", inst.Symbol, err)
		}
		strats[inst.Symbol] = strat
	}

	return &Runner{
		cfg:        cfg,
		broker:     b,
		sink:       s,
		notifier:   n,
		risk:       rm,
		strategies: strats,
		log:        log.With().Str("component", "runner").Logger(),
		now:        time.Now,
	}, nil
}

// Run executes ticks at the configured interval until ctx is cancelled.
// Ticks never overlap: the ticker fires into a buffered channel, so ticks
// that elapse while one is in flight coalesce into a single late run. An
// in-flight tick completes before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.cfg.Scheduler.Interval()
	r.log.Info().Dur("interval", interval).Int("instruments", len(r.cfg.Instruments)).Msg("starting trading loop")

	r.lastReconcile = r.now().UTC()
	r.lastDay = r.lastReconcile

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass: day rollover, PnL reconciliation, session
// gate, then the per-instrument job. Instrument failures are isolated; one
// bad symbol never blocks the rest.
func (r *Runner) Tick(ctx context.Context) {
	now := r.now().UTC()
	metrics.TicksTotal.Inc()

	r.rolloverIfNewDay(now)
	r.reconcile(ctx, now)

	session := r.cfg.Scheduler.Session
	if !market.WithinSession(now, session.StartHour, session.EndHour) {
		r.log.Debug().Int("hour", now.Hour()).Msg("outside trading session")
		return
	}

	for _, ic := range r.cfg.Instruments {
		if err := r.processInstrument(ctx, ic.Instrument()); err != nil {
			r.log.Error().Err(err).Str("symbol", ic.Symbol).Msg("instrument job failed")
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// rolloverIfNewDay resets the daily risk counters when the UTC date
// changes between ticks.
func (r *Runner) rolloverIfNewDay(now time.Time) {
	if r.lastDay.IsZero() {
		r.lastDay = now
		return
	}
	y1, m1, d1 := r.lastDay.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		r.log.Info().Msg("utc day rollover, resetting daily risk counters")
		r.risk.ResetDay()
		r.updateRiskGauges()
	}
	r.lastDay = now
}

// reconcile folds realized losses from settled deals back into the risk
// governor so the daily loss ceiling tracks actual outcomes.
func (r *Runner) reconcile(ctx context.Context, now time.Time) {
	since := r.lastReconcile
	if since.IsZero() {
		r.lastReconcile = now
		return
	}

	txs, err := r.broker.ClosedTransactions(ctx, since)
	if err != nil {
		r.log.Warn().Err(err).Msg("pnl reconciliation failed")
		return
	}
	r.lastReconcile = now

	for _, tx := range txs {
		if tx.ProfitLoss >= 0 {
			continue
		}
		r.log.Info().Str("reference", tx.Reference).Float64("pnl", tx.ProfitLoss).Msg("realized loss reconciled")
		r.risk.ApplyRealized(tx.ProfitLoss)
	}
	if len(txs) > 0 {
		r.updateRiskGauges()
	}
}

func (r *Runner) processInstrument(ctx context.Context, inst market.Instrument) error {
	log := r.log.With().Str("symbol", inst.Symbol).Logger()

	candles, err := r.broker.GetCandles(ctx, inst.Epic, inst.Resolution(), r.cfg.Data.HistoryPoints)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		log.Debug().Msg("no candles returned")
		return nil
	}

	if r.sink != nil {
		// Only the newest bar changes between polls.
		if err := r.sink.UpsertCandles(ctx, inst.Symbol, candles[len(candles)-1:]); err != nil {
			log.Warn().Err(err).Msg("candle upsert failed")
		}
	}

	strat, ok := r.strategies[inst.Symbol]
	if !ok {
		return nil
	}

	sig := strat.Generate(candles)
	if sig.Side == strategies.Flat {
		return nil
	}
	metrics.SignalsTotal.WithLabelValues(inst.Symbol, sig.Side.String()).Inc()
	log.Info().Str("side", sig.Side.String()).Str("strategy", strat.Name()).Msg("signal generated")

	price := candles[len(candles)-1].Close
	stopPips := inst.StopDistancePips
	if stopPips < 1 {
		stopPips = 1
	}
	slDistance := stopPips * inst.PipSize
	rr := r.risk.Config().RRRatio

	var stop, target float64
	var direction broker.Direction
	if sig.Side == strategies.Buy {
		direction = broker.DirectionBuy
		stop = price - slDistance
		target = price + slDistance*rr
	} else {
		direction = broker.DirectionSell
		stop = price + slDistance
		target = price - slDistance*rr
	}

	if ok, reason := r.risk.CanTrade(); !ok {
		metrics.TradesSkipped.WithLabelValues(reason).Inc()
		log.Info().Str("reason", reason).Msg("trade blocked by risk governor")
		return nil
	}

	size := r.risk.PositionSize(price, stop, inst.PipSize, inst.LotSize)
	if size <= 0 {
		metrics.TradesSkipped.WithLabelValues("size_below_one_lot").Inc()
		log.Info().Msg("position size rounds below one lot")
		return nil
	}

	pf := market.PriceFormat(inst.PipSize)
	if r.notifier != nil {
		approved := r.notifier.RequestConfirmation(ctx, notify.Alert{
			Symbol:      inst.Symbol,
			Direction:   string(direction),
			Price:       price,
			StopLoss:    stop,
			TakeProfit:  target,
			Size:        float64(size),
			PriceFormat: pf,
		})
		if !approved {
			metrics.TradesSkipped.WithLabelValues("not_approved").Inc()
			log.Info().Msg("trade rejected or not confirmed in time")
			return nil
		}
	}

	ref := id.New()
	conf, err := r.broker.CreateMarketOrder(ctx, broker.MarketOrderRequest{
		Epic:       inst.Epic,
		Direction:  direction,
		Size:       float64(size),
		StopLevel:  &stop,
		LimitLevel: &target,
		Reference:  ref,
	})
	if err != nil {
		metrics.TradesSkipped.WithLabelValues("order_failed").Inc()
		return fmt.Errorf("submit order: %w", err)
	}
	if conf.DealReference == "" {
		conf.DealReference = ref
	}
	metrics.OrdersSubmitted.WithLabelValues(inst.Symbol).Inc()
	log.Info().
		Str("direction", string(direction)).
		Int("size", size).
		Str("deal_ref", conf.DealReference).
		Msg("market order submitted")

	if r.sink != nil {
		rec := sink.TradeRecord{
			Time:       r.now().UTC(),
			Epic:       inst.Epic,
			Symbol:     inst.Symbol,
			Side:       string(direction),
			Size:       float64(size),
			Entry:      price,
			StopLoss:   stop,
			TakeProfit: target,
			DealRef:    conf.DealReference,
			Raw:        conf.Raw,
		}
		if err := r.sink.InsertTrade(ctx, rec); err != nil {
			log.Warn().Err(err).Msg("trade log insert failed")
		}
	}

	if r.notifier != nil {
		r.notifier.NotifyExecution(notify.Execution{
			Symbol:        inst.Symbol,
			Direction:     string(direction),
			Price:         price,
			Size:          float64(size),
			DealReference: conf.DealReference,
			PriceFormat:   pf,
		})
	}

	// The outcome is unknown at entry; the loss shows up later through
	// reconciliation.
	r.risk.RegisterTrade(0)
	r.updateRiskGauges()
	return nil
}

func (r *Runner) updateRiskGauges() {
	trades, loss := r.risk.DailyStats()
	metrics.DailyTrades.Set(float64(trades))
	metrics.DailyLoss.Set(loss)
}
