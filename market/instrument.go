package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Instrument is the static descriptor for a tradable market. Loaded once
// from configuration and read-only during a run.
type Instrument struct {
	Symbol           string  // display symbol, e.g. "EURUSD"
	Epic             string  // broker instrument identifier
	PipSize          float64 // e.g. 0.0001 for EUR/USD, 0.01 for JPY pairs
	LotSize          int     // minimum tradable unit multiple
	Timeframe        string  // "1min" or "5min"
	StopDistancePips float64 // stop distance in pips
}

// Resolution maps the configured timeframe onto the broker's candle
// resolution identifier.
func (i Instrument) Resolution() string {
	if i.Timeframe == "5min" {
		return "MINUTE_5"
	}
	return "MINUTE"
}

// RoundToPip snaps a price to the nearest whole pip.
func RoundToPip(price, pipSize float64) float64 {
	if pipSize <= 0 {
		return price
	}
	return math.Round(price/pipSize) * pipSize
}

// PriceFormat returns a Printf verb sized to the instrument's pip, e.g.
// "%.4f" for a 0.0001 pip. Used when rendering prices in alerts and logs.
func PriceFormat(pipSize float64) string {
	if pipSize <= 0 {
		return "%.5f"
	}
	s := strconv.FormatFloat(pipSize, 'f', -1, 64)
	decimals := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		decimals = len(s) - i - 1
	}
	if decimals < 1 {
		decimals = 1
	}
	if decimals > 6 {
		decimals = 6
	}
	return fmt.Sprintf("%%.%df", decimals)
}
