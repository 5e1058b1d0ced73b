package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order direction, using venue casing.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// EntryType selects how the entry order is placed.
type EntryType string

const (
	// EntryMakerLimit places a post-only limit order.
	EntryMakerLimit EntryType = "MAKER_LIMIT"
	// EntryLimit places a plain GTC limit order.
	EntryLimit EntryType = "LIMIT"
	// EntryMarket is accepted on the wire but always rejected;
	// market entries are disabled by policy.
	EntryMarket EntryType = "MARKET"
)

// QtyMode selects how TradeIntent.QtyValue is interpreted.
type QtyMode string

const (
	// QtyNotional means QtyValue is quote-currency notional (e.g. USDT).
	QtyNotional QtyMode = "NOTIONAL"
	// QtyBase means QtyValue is base-asset quantity.
	QtyBase QtyMode = "BASE_QTY"
)

// TradeIntent is a caller's request to enter a position. The IntentID doubles
// as the idempotency key and the venue client-order-id. An intent is consumed
// exactly once by the engine and never mutated.
type TradeIntent struct {
	IntentID            string            `json:"intentId"`
	CreatedAt           time.Time         `json:"createdAt"`
	Profile             string            `json:"profile,omitempty"`
	Symbol              string            `json:"symbol"`
	Side                Side              `json:"side"`
	EntryType           EntryType         `json:"entryType"`
	EntryPrice          *decimal.Decimal  `json:"entryPrice,omitempty"`
	QtyMode             QtyMode           `json:"qtyMode"`
	QtyValue            decimal.Decimal   `json:"qtyValue"`
	SLPrice             decimal.Decimal   `json:"slPrice"`
	TPPrices            []decimal.Decimal `json:"tpPrices,omitempty"`
	TrailingStop        *decimal.Decimal  `json:"trailingStop,omitempty"`
	TrailingActivePrice *decimal.Decimal  `json:"trailingActivePrice,omitempty"`
	ExpireAfterMs       int64             `json:"expireAfterMs"`
	Tags                []string          `json:"tags,omitempty"`
}

// Validate checks the wire-level shape of the intent. Entry-type policy
// (market disabled, price required) is enforced by the engine so the
// rejection reason lands in ExecutionState, not in an HTTP 400.
func (i *TradeIntent) Validate() error {
	if i.IntentID == "" {
		return fmt.Errorf("intentId is required")
	}
	if i.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("invalid side: %q", i.Side)
	}
	switch i.EntryType {
	case EntryMakerLimit, EntryLimit, EntryMarket:
	default:
		return fmt.Errorf("invalid entryType: %q", i.EntryType)
	}
	switch i.QtyMode {
	case QtyNotional, QtyBase:
	default:
		return fmt.Errorf("invalid qtyMode: %q", i.QtyMode)
	}
	if i.QtyValue.Sign() <= 0 {
		return fmt.Errorf("qtyValue must be > 0")
	}
	if i.SLPrice.Sign() <= 0 {
		return fmt.Errorf("slPrice must be > 0")
	}
	if i.ExpireAfterMs <= 0 {
		return fmt.Errorf("expireAfterMs must be > 0")
	}
	return nil
}

// RequiresPrice reports whether this entry type must carry an entry price.
func (t EntryType) RequiresPrice() bool {
	return t == EntryMakerLimit || t == EntryLimit
}

// PostOnly reports whether the entry order is placed maker-only.
func (t EntryType) PostOnly() bool {
	return t == EntryMakerLimit
}

// FirstTP returns the first take-profit level, if any. The first element is
// the one attached to the venue-side protective order.
func (i *TradeIntent) FirstTP() (decimal.Decimal, bool) {
	if len(i.TPPrices) == 0 {
		return decimal.Decimal{}, false
	}
	return i.TPPrices[0], true
}
