package strategies

import (
	"github.com/rustyeddy/igfx/indicators"
	"github.com/rustyeddy/igfx/market"
)

// AlligatorFib requires the Alligator trend filter and a Fibonacci
// retracement of the latest zig-zag swing to agree: an aligned uptrend with
// price near a retracement below the swing high buys, the mirror image
// sells. Either condition alone yields Flat.
type AlligatorFib struct {
	Jaw       int
	Teeth     int
	Lips      int
	Smooth    int
	ZigZagPct float64
	Levels    []float64
	Tolerance float64
}

const alligatorFibSwingBars = 30

func NewAlligatorFib(jaw, teeth, lips, smooth int, zigzagPct float64, levels []float64, tolerance float64) *AlligatorFib {
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
	if zigzagPct <= 0 {
		zigzagPct = 2.0
	}
	if len(levels) == 0 {
		levels = DefaultFibLevels
	}
	if tolerance <= 0 {
		tolerance = 0.0015
	}
	return &AlligatorFib{
		Jaw: jaw, Teeth: teeth, Lips: lips, Smooth: smooth,
		ZigZagPct: zigzagPct, Levels: levels, Tolerance: tolerance,
	}
}

func (s *AlligatorFib) Name() string { return "alligator_fib" }

func (s *AlligatorFib) Lookback() int {
	return max(s.Jaw, s.Teeth, s.Lips) + alligatorFibSwingBars
}

func (s *AlligatorFib) Generate(candles []market.Candle) Signal {
	if len(candles) < s.Lookback() {
		return Signal{Side: Flat}
	}

	closes := market.Closes(candles)
	up, down := alligatorTrend(closes, s.Jaw, s.Teeth, s.Lips, s.Smooth)
	if !up && !down {
		return Signal{Side: Flat}
	}

	pivots := indicators.ZigZagPivots(closes, s.ZigZagPct)
	if len(pivots) < 2 {
		return Signal{Side: Flat}
	}

	prev, last := pivots[len(pivots)-2], pivots[len(pivots)-1]
	swingHigh, swingLow := swingExtremes(closes, prev.Index, last.Index)
	if swingHigh <= swingLow {
		return Signal{Side: Flat}
	}

	price := closes[len(closes)-1]
	diff := swingHigh - swingLow
	if up && nearRetracement(price, swingHigh, diff, s.Levels, s.Tolerance, true) {
		return Signal{Side: Buy}
	}
	if down && nearRetracement(price, swingLow, diff, s.Levels, s.Tolerance, false) {
		return Signal{Side: Sell}
	}
	return Signal{Side: Flat}
}
