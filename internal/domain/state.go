package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the engine-level status of the current execution cycle.
type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusIntentAccepted Status = "INTENT_ACCEPTED"
	StatusEntryPlaced    Status = "ENTRY_PLACED"
	StatusEntryFilled    Status = "ENTRY_FILLED"
	StatusManaging       Status = "MANAGING"
	StatusExiting        Status = "EXITING"
	StatusFlat           Status = "FLAT"
	StatusRejected       Status = "REJECTED"
	StatusStaleData      Status = "STALE_DATA"
	StatusDesync         Status = "DESYNC"
)

// Reason codes attached to status transitions.
const (
	ReasonMarketDisabled    = "MARKET_DISABLED"
	ReasonMissingEntryPrice = "MISSING_ENTRY_PRICE"
	ReasonLeverageSetFailed = "LEVERAGE_SET_FAILED"
	ReasonQtyResolution     = "QTY_RESOLUTION_FAILED"
	ReasonEntryTimeout      = "ENTRY_TIMEOUT"
	ReasonKillSwitch        = "KILL_SWITCH"
	ReasonStaleData         = "STALE_DATA"
	ReasonStateMismatch     = "STATE_MISMATCH"
	ReasonPositionNotOpen   = "POSITION_NOT_OPEN"
)

// PositionSide is the direction of a net position.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
	PositionFlat  PositionSide = "FLAT"
)

// OrderBrief is the local view of one open order, sourced from venue
// snapshots or from a just-submitted placement response.
type OrderBrief struct {
	OrderID    string           `json:"orderId"`
	Symbol     string           `json:"symbol"`
	Side       Side             `json:"side"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Qty        *decimal.Decimal `json:"qty,omitempty"`
	Status     string           `json:"status"`
	ReduceOnly bool             `json:"reduceOnly"`
}

// PositionBrief is the local view of one symbol's net position. Flat is
// defined by Size == 0, never by the Side field of the source data.
type PositionBrief struct {
	Symbol        string           `json:"symbol"`
	Side          PositionSide     `json:"side"`
	Size          decimal.Decimal  `json:"size"`
	EntryPrice    *decimal.Decimal `json:"entryPrice,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealizedPnl,omitempty"`
}

// IsFlat reports whether the position size is zero.
func (p PositionBrief) IsFlat() bool {
	return p.Size.Sign() == 0
}

// FeedState is the health classification of one data channel.
type FeedState string

const (
	FeedUp    FeedState = "UP"
	FeedDown  FeedState = "DOWN"
	FeedStale FeedState = "STALE"
)

// FeedStatus is the health of a single feed channel.
type FeedStatus struct {
	State    FeedState `json:"state"`
	LastSeen time.Time `json:"lastSeen"`
}

// FeedSummary reports the health of both feed channels.
type FeedSummary struct {
	Market  FeedStatus `json:"market"`
	Private FeedStatus `json:"private"`
}

// ExecutionState is the process-wide snapshot of engine status, open orders
// and positions. It is always replaced as a whole, never mutated in place.
type ExecutionState struct {
	Timestamp    time.Time                `json:"timestamp"`
	Status       Status                   `json:"status"`
	Reason       string                   `json:"reason,omitempty"`
	LastIntentID string                   `json:"lastIntentId,omitempty"`
	Orders       []OrderBrief             `json:"orders"`
	Positions    map[string]PositionBrief `json:"positions"`
	Feeds        FeedSummary              `json:"feeds"`
}

// NewExecutionState returns the FLAT/IDLE baseline state.
func NewExecutionState() ExecutionState {
	return ExecutionState{
		Timestamp: time.Now(),
		Status:    StatusIdle,
		Orders:    []OrderBrief{},
		Positions: map[string]PositionBrief{},
	}
}

// Clone returns a deep copy safe to mutate without affecting the original.
func (s ExecutionState) Clone() ExecutionState {
	out := s
	out.Orders = make([]OrderBrief, len(s.Orders))
	copy(out.Orders, s.Orders)
	out.Positions = make(map[string]PositionBrief, len(s.Positions))
	for sym, pos := range s.Positions {
		out.Positions[sym] = pos
	}
	return out
}

// OrdersFor returns the open orders tracked for one symbol.
func (s ExecutionState) OrdersFor(symbol string) []OrderBrief {
	var out []OrderBrief
	for _, o := range s.Orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}
