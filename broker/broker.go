// Package broker defines the boundary contract between the trading core
// and a broker backend.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rustyeddy/igfx/market"
)

// Direction of an order.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// MarketOrderRequest describes a market order with an attached stop and
// limit level.
type MarketOrderRequest struct {
	Epic       string
	Direction  Direction
	Size       float64
	StopLevel  *float64
	LimitLevel *float64
	Reference  string // client-generated deal reference; empty lets the broker assign one
	Currency   string
}

// OrderConfirmation is the broker's acknowledgement of an order submission.
// Raw preserves the untouched response body for persistence.
type OrderConfirmation struct {
	DealReference string
	Raw           json.RawMessage
}

// Transaction is a settled deal reported by the broker's history endpoint.
// Used to reconcile realized PnL back into the risk governor.
type Transaction struct {
	Reference  string
	Instrument string
	ProfitLoss float64
	Date       time.Time
}

// Broker is the contract the runner trades against. Implementations own
// session management and request-level retry; the runner treats any error
// as "no trade this tick" for the affected instrument.
type Broker interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	// GetCandles fetches up to count historical bars for the epic at the
	// given resolution, sorted ascending by time.
	GetCandles(ctx context.Context, epic, resolution string, count int) ([]market.Candle, error)

	CreateMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderConfirmation, error)
	ClosePosition(ctx context.Context, dealID string, direction Direction, size float64) error

	// ClosedTransactions lists deals settled since the given time.
	ClosedTransactions(ctx context.Context, since time.Time) ([]Transaction, error)
}
