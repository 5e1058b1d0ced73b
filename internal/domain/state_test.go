package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPositionBrief_IsFlat(t *testing.T) {
	tests := []struct {
		name string
		pos  PositionBrief
		want bool
	}{
		{"zero size", PositionBrief{Side: PositionLong, Size: decimal.Zero}, true},
		{"long", PositionBrief{Side: PositionLong, Size: decimal.NewFromInt(1)}, false},
		{"short", PositionBrief{Side: PositionShort, Size: decimal.NewFromInt(2)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsFlat(); got != tt.want {
				t.Errorf("IsFlat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecutionState_Clone(t *testing.T) {
	st := NewExecutionState()
	st.Orders = append(st.Orders, OrderBrief{OrderID: "o1", Symbol: "BTCUSDT"})
	st.Positions["BTCUSDT"] = PositionBrief{Symbol: "BTCUSDT", Side: PositionLong, Size: decimal.NewFromInt(1)}

	clone := st.Clone()
	clone.Orders[0].OrderID = "changed"
	clone.Positions["BTCUSDT"] = PositionBrief{Symbol: "BTCUSDT", Side: PositionFlat}

	if st.Orders[0].OrderID != "o1" {
		t.Error("clone shares the orders slice")
	}
	if st.Positions["BTCUSDT"].Side != PositionLong {
		t.Error("clone shares the positions map")
	}
}

func TestExecutionState_OrdersFor(t *testing.T) {
	st := NewExecutionState()
	st.Orders = []OrderBrief{
		{OrderID: "b1", Symbol: "BTCUSDT"},
		{OrderID: "e1", Symbol: "ETHUSDT"},
		{OrderID: "b2", Symbol: "BTCUSDT"},
	}
	got := st.OrdersFor("BTCUSDT")
	if len(got) != 2 || got[0].OrderID != "b1" || got[1].OrderID != "b2" {
		t.Errorf("OrdersFor() = %+v", got)
	}
	if len(st.OrdersFor("SOLUSDT")) != 0 {
		t.Error("unknown symbol returned orders")
	}
}
