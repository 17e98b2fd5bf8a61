package strategies

import (
	"math"

	"github.com/rustyeddy/igfx/indicators"
	"github.com/rustyeddy/igfx/market"
)

// RSIReversal buys oversold and sells overbought conditions on the latest
// bar's RSI.
type RSIReversal struct {
	Length     int
	Overbought float64
	Oversold   float64
}

func NewRSIReversal(length int, overbought, oversold float64) *RSIReversal {
	if length <= 0 {
		length = 14
	}
	if overbought <= 0 {
		overbought = 70
	}
	if oversold <= 0 {
		oversold = 30
	}
	return &RSIReversal{Length: length, Overbought: overbought, Oversold: oversold}
}

func (s *RSIReversal) Name() string { return "rsi_reversal" }

func (s *RSIReversal) Lookback() int { return s.Length + 2 }

func (s *RSIReversal) Generate(candles []market.Candle) Signal {
	if len(candles) < s.Lookback() {
		return Signal{Side: Flat}
	}

	rsi := indicators.RSI(market.Closes(candles), s.Length)
	val := indicators.Last(rsi)
	if math.IsNaN(val) {
		return Signal{Side: Flat}
	}

	switch {
	case val < s.Oversold:
		return Signal{Side: Buy}
	case val > s.Overbought:
		return Signal{Side: Sell}
	default:
		return Signal{Side: Flat}
	}
}
