// Package exchange defines the capability set the engine consumes from a
// trading venue. Venue-specific translation lives in the concrete clients;
// the engine only ever sees these shapes.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"execgate/internal/domain"
)

// PlaceOrderRequest describes one order submission.
type PlaceOrderRequest struct {
	Symbol        string
	Side          domain.Side
	OrderType     string // "Limit" or "Market"
	Qty           decimal.Decimal
	Price         *decimal.Decimal
	TimeInForce   string // "GTC", "PostOnly", ...
	PostOnly      bool
	ReduceOnly    bool
	PositionIdx   int // 0 = one-way mode
	ClientOrderID string
}

// PlaceOrderResult is the venue acknowledgment of a placement.
type PlaceOrderResult struct {
	OrderID string `json:"orderId"`
}

// TradingStopRequest sets venue-side protective orders for a position.
type TradingStopRequest struct {
	Symbol              string
	StopLoss            decimal.Decimal
	TakeProfit          *decimal.Decimal
	TrailingStop        *decimal.Decimal
	TrailingActivePrice *decimal.Decimal
}

// VenueOrder is one open order as reported by a venue snapshot. Fields the
// venue omits stay zero; the reconciler applies defaults.
type VenueOrder struct {
	OrderID    string
	Symbol     string
	Side       domain.Side
	Price      *decimal.Decimal
	Qty        *decimal.Decimal
	Status     string
	ReduceOnly bool
}

// VenuePosition is the net position as reported by a venue snapshot.
// Side carries the venue's buy/sell indicator and may be stale when Size is
// zero; consumers must derive flatness from Size alone.
type VenuePosition struct {
	Symbol        string
	Side          domain.Side
	Size          decimal.Decimal
	EntryPrice    *decimal.Decimal
	UnrealizedPnL *decimal.Decimal
}

// Snapshot is a point-in-time read of open orders and position for a symbol.
type Snapshot struct {
	Symbol   string
	Orders   []VenueOrder
	Position VenuePosition
}

// Adapter is the abstract venue capability set. One concrete implementation
// exists per venue client; tests substitute a double at this seam.
type Adapter interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAll(ctx context.Context, symbol string) error
	GetSnapshot(ctx context.Context, symbol string) (Snapshot, error)
	NotionalToQty(ctx context.Context, symbol string, notional decimal.Decimal) (decimal.Decimal, error)
	SetTradingStop(ctx context.Context, req TradingStopRequest) error
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}
