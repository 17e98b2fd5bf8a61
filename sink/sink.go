// Package sink persists candle history and trade records. Writes are
// fire-and-forget from the trading loop's perspective: failures are logged
// by the caller and never abort a tick.
package sink

import (
	"context"
	"time"

	"github.com/rustyeddy/igfx/market"
)

// TradeRecord captures a submitted order for the trade log.
type TradeRecord struct {
	Time       time.Time
	Epic       string
	Symbol     string
	Side       string
	Size       float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	DealRef    string
	Raw        []byte // broker response body, stored verbatim
}

// Sink is the persistence boundary for candles and trades.
type Sink interface {
	// UpsertCandles inserts or updates bars keyed by (symbol, time).
	UpsertCandles(ctx context.Context, symbol string, candles []market.Candle) error

	// InsertTrade appends a trade record.
	InsertTrade(ctx context.Context, rec TradeRecord) error

	Close() error
}
