package strategies

import (
	"github.com/rustyeddy/igfx/indicators"
	"github.com/rustyeddy/igfx/market"
)

// Alligator combines the jaw/teeth/lips smoothed moving averages as a trend
// filter with a breakout of the trailing N-bar high or low as momentum
// confirmation. Uptrend iff lips > teeth > jaw on the latest bar; entry only
// when the close also breaks the prior bar's trailing extreme.
type Alligator struct {
	Jaw              int
	Teeth            int
	Lips             int
	Smooth           int
	BreakoutLookback int
}

func NewAlligator(jaw, teeth, lips, smooth, breakoutLookback int) *Alligator {
	if jaw <= 0 {
		jaw = 13
	}
	if teeth <= 0 {
		teeth = 8
	}
	if lips <= 0 {
		lips = 5
	}
	if smooth <= 0 {
		smooth = 5
	}
	if breakoutLookback <= 0 {
		breakoutLookback = 10
	}
	return &Alligator{Jaw: jaw, Teeth: teeth, Lips: lips, Smooth: smooth, BreakoutLookback: breakoutLookback}
}

func (s *Alligator) Name() string { return "alligator" }

func (s *Alligator) Lookback() int {
	return max(s.Jaw, s.Teeth, s.Lips) + s.BreakoutLookback + 2
}

func (s *Alligator) Generate(candles []market.Candle) Signal {
	if len(candles) < s.Lookback() {
		return Signal{Side: Flat}
	}

	closes := market.Closes(candles)
	up, down := alligatorTrend(closes, s.Jaw, s.Teeth, s.Lips, s.Smooth)

	n := len(candles)
	// Trailing extreme of the lookback window ending at the prior bar.
	hi := candles[n-1-s.BreakoutLookback].High
	lo := candles[n-1-s.BreakoutLookback].Low
	for _, c := range candles[n-s.BreakoutLookback : n-1] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}

	c := closes[n-1]
	switch {
	case up && c > hi:
		return Signal{Side: Buy}
	case down && c < lo:
		return Signal{Side: Sell}
	default:
		return Signal{Side: Flat}
	}
}

// alligatorTrend reports the jaw/teeth/lips alignment at the latest bar.
func alligatorTrend(closes []float64, jaw, teeth, lips, smooth int) (up, down bool) {
	j := indicators.Last(indicators.SmoothedMA(closes, jaw, smooth))
	t := indicators.Last(indicators.SmoothedMA(closes, teeth, smooth))
	l := indicators.Last(indicators.SmoothedMA(closes, lips, smooth))

	up = l > t && t > j
	down = l < t && t < j
	return up, down
}
