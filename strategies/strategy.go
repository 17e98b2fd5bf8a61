// Package strategies implements the signal-generation variants. Every
// strategy consumes a time-ordered bar series and reports the directional
// state of the most recent bar only.
package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/igfx/market"
)

// Side is the directional outcome of a strategy evaluation.
type Side int

const (
	Flat Side = iota
	Buy
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "FLAT"
	}
}

// Signal is the output of a strategy evaluation at the most recent bar.
// Stop, Target and Size are optional suggestions; the runner computes its
// own stop/target from pip distance and the reward:risk ratio.
type Signal struct {
	Side   Side
	Stop   float64
	Target float64
	Size   float64
}

// Strategy generates a signal from a bar series sorted ascending by time.
// Implementations must be deterministic, must not mutate the input, and
// must return a Flat signal when the series is shorter than their lookback.
type Strategy interface {
	Name() string
	Generate(candles []market.Candle) Signal
}

// Params carries the tunable knobs for every strategy variant. Only the
// fields the named variant uses are read; zero values fall back to the
// variant's defaults.
type Params struct {
	Fast int `yaml:"fast" json:"fast"`
	Slow int `yaml:"slow" json:"slow"`

	RSILength     int     `yaml:"rsi_len" json:"rsi_len"`
	RSIOverbought float64 `yaml:"rsi_ob" json:"rsi_ob"`
	RSIOversold   float64 `yaml:"rsi_os" json:"rsi_os"`

	Jaw              int `yaml:"jaw" json:"jaw"`
	Teeth            int `yaml:"teeth" json:"teeth"`
	Lips             int `yaml:"lips" json:"lips"`
	Smooth           int `yaml:"smooth" json:"smooth"`
	BreakoutLookback int `yaml:"breakout_lookback" json:"breakout_lookback"`

	ZigZagPct    float64   `yaml:"zigzag_pct" json:"zigzag_pct"`
	FibLevels    []float64 `yaml:"fib_levels" json:"fib_levels"`
	FibTolerance float64   `yaml:"fib_tolerance" json:"fib_tolerance"`
}

// ByName constructs the named strategy variant. The set of names is closed;
// an unknown name is a configuration error and fatal at startup.
func ByName(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sma_ema_crossover":
		return NewSMAEMACrossover(p.Fast, p.Slow), nil

	case "rsi_reversal":
		return NewRSIReversal(p.RSILength, p.RSIOverbought, p.RSIOversold), nil

	case "alligator":
		return NewAlligator(p.Jaw, p.Teeth, p.Lips, p.Smooth, p.BreakoutLookback), nil

	case "fib_zigzag", "fib_elliott":
		return NewFibZigZag(p.ZigZagPct, p.FibLevels, p.FibTolerance), nil

	case "alligator_fib":
		return NewAlligatorFib(p.Jaw, p.Teeth, p.Lips, p.Smooth,
			p.ZigZagPct, p.FibLevels, p.FibTolerance), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: sma_ema_crossover, rsi_reversal, alligator, fib_zigzag, alligator_fib)", name)
	}
}
