package strategies

import (
	"math"

	"github.com/rustyeddy/igfx/indicators"
	"github.com/rustyeddy/igfx/market"
)

// SMAEMACrossover trades the cross of a fast simple moving average over a
// slow exponential moving average:
//   - Buy when the fast SMA crosses above the slow EMA between the last
//     two bars
//   - Sell on the cross down
type SMAEMACrossover struct {
	Fast int
	Slow int
}

func NewSMAEMACrossover(fast, slow int) *SMAEMACrossover {
	if fast <= 0 {
		fast = 50
	}
	if slow <= 0 {
		slow = 200
	}
	return &SMAEMACrossover{Fast: fast, Slow: slow}
}

func (s *SMAEMACrossover) Name() string { return "sma_ema_crossover" }

// Lookback is the minimum series length required for a non-Flat result.
func (s *SMAEMACrossover) Lookback() int {
	return max(s.Fast, s.Slow) + 2
}

func (s *SMAEMACrossover) Generate(candles []market.Candle) Signal {
	if len(candles) < s.Lookback() {
		return Signal{Side: Flat}
	}

	closes := market.Closes(candles)
	sma := indicators.RollingMean(closes, s.Fast)
	ema := indicators.EMA(closes, s.Slow)

	n := len(closes)
	curSMA, prevSMA := sma[n-1], sma[n-2]
	curEMA, prevEMA := ema[n-1], ema[n-2]
	if math.IsNaN(curSMA) || math.IsNaN(prevSMA) {
		return Signal{Side: Flat}
	}

	switch {
	case prevSMA < prevEMA && curSMA > curEMA:
		return Signal{Side: Buy}
	case prevSMA > prevEMA && curSMA < curEMA:
		return Signal{Side: Sell}
	default:
		return Signal{Side: Flat}
	}
}
