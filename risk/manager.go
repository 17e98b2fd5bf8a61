// Package risk sizes positions under a per-trade risk budget and enforces
// daily trade-count and daily-loss ceilings.
package risk

import (
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// Config holds the immutable per-run risk parameters.
type Config struct {
	Balance         float64 `yaml:"balance" json:"balance"`
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct" json:"risk_per_trade_pct"`
	RRRatio         float64 `yaml:"rr_ratio" json:"rr_ratio"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct"`
	MaxDailyTrades  int     `yaml:"max_daily_trades" json:"max_daily_trades"`
	SlippagePips    float64 `yaml:"slippage_pips" json:"slippage_pips"`

	// MinOneLot restores the legacy behaviour of flooring the computed
	// size up to a single lot. Off by default: a size that rounds below
	// one lot yields 0 (do not trade) instead of over-risking small
	// accounts.
	MinOneLot bool `yaml:"min_one_lot" json:"min_one_lot"`
}

// Default returns the risk parameters used when the config file leaves the
// risk section empty.
func Default() Config {
	return Config{
		Balance:         10000,
		RiskPerTradePct: 1.0,
		RRRatio:         2.0,
		MaxDailyLossPct: 3.0,
		MaxDailyTrades:  5,
		SlippagePips:    0.5,
	}
}

// Manager owns the process-lifetime daily counters. The counters are only
// reset by an explicit ResetDay call; the runner performs that on UTC day
// rollover.
type Manager struct {
	cfg Config
	log zerolog.Logger

	mu          sync.Mutex
	dailyLoss   float64
	dailyTrades int
}

func NewManager(cfg Config, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

// Config returns the immutable risk parameters.
func (m *Manager) Config() Config { return m.cfg }

// CanTrade reports whether a new trade is allowed under today's ceilings.
// The second return value carries the blocking reason when it is not.
func (m *Manager) CanTrade() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyTrades >= m.cfg.MaxDailyTrades {
		m.log.Warn().Int("trades", m.dailyTrades).Msg("max daily trades reached")
		return false, "max daily trades reached"
	}
	if m.cfg.Balance > 0 && (m.dailyLoss/m.cfg.Balance)*100.0 >= m.cfg.MaxDailyLossPct {
		m.log.Warn().Float64("loss", m.dailyLoss).Msg("max daily loss reached")
		return false, "max daily loss reached"
	}
	return true, ""
}

// PositionSize computes the unit count that risks RiskPerTradePct of the
// balance over the entry-to-stop pip distance, floored to a whole multiple
// of lotSize. A zero or negative pip distance returns 0, as does a size
// that rounds below one lot unless MinOneLot is set.
func (m *Manager) PositionSize(entry, stop, pipSize float64, lotSize int) int {
	if pipSize <= 0 || lotSize <= 0 {
		return 0
	}

	riskAmt := m.cfg.Balance * (m.cfg.RiskPerTradePct / 100.0)
	pipRisk := math.Abs(entry-stop) / pipSize
	if pipRisk <= 0 {
		return 0
	}

	units := riskAmt / pipRisk / pipSize
	lots := int(units) / lotSize
	if lots < 1 {
		if !m.cfg.MinOneLot {
			return 0
		}
		lots = 1
	}
	return lots * lotSize
}

// RegisterTrade increments today's trade count. A negative pnl also adds
// its absolute value to today's cumulative loss.
func (m *Manager) RegisterTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyTrades++
	if pnl < 0 {
		m.dailyLoss += -pnl
	}
}

// ApplyRealized feeds a realized PnL figure back into the daily-loss
// accumulator without touching the trade count. Used by the runner's
// reconciliation step when the broker reports a closed position.
func (m *Manager) ApplyRealized(pnl float64) {
	if pnl >= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLoss += -pnl
}

// ResetDay zeroes both daily counters.
func (m *Manager) ResetDay() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyLoss = 0
	m.dailyTrades = 0
	m.log.Info().Msg("daily risk counters reset")
}

// DailyStats returns today's trade count and cumulative loss.
func (m *Manager) DailyStats() (trades int, loss float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyTrades, m.dailyLoss
}
