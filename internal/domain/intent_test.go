package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validIntent() TradeIntent {
	entry := decimal.NewFromInt(50000)
	return TradeIntent{
		IntentID:      "abc",
		Symbol:        "BTCUSDT",
		Side:          SideBuy,
		EntryType:     EntryLimit,
		EntryPrice:    &entry,
		QtyMode:       QtyBase,
		QtyValue:      decimal.RequireFromString("0.01"),
		SLPrice:       decimal.NewFromInt(49000),
		ExpireAfterMs: 5000,
	}
}

func TestTradeIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TradeIntent)
		wantErr bool
	}{
		{"valid", func(*TradeIntent) {}, false},
		{"missing id", func(i *TradeIntent) { i.IntentID = "" }, true},
		{"missing symbol", func(i *TradeIntent) { i.Symbol = "" }, true},
		{"bad side", func(i *TradeIntent) { i.Side = "LONG" }, true},
		{"bad entry type", func(i *TradeIntent) { i.EntryType = "STOP" }, true},
		{"bad qty mode", func(i *TradeIntent) { i.QtyMode = "CONTRACTS" }, true},
		{"zero qty", func(i *TradeIntent) { i.QtyValue = decimal.Zero }, true},
		{"negative qty", func(i *TradeIntent) { i.QtyValue = decimal.NewFromInt(-1) }, true},
		{"zero stop", func(i *TradeIntent) { i.SLPrice = decimal.Zero }, true},
		{"zero expiry", func(i *TradeIntent) { i.ExpireAfterMs = 0 }, true},
		// Market intents pass wire validation; the engine rejects them with
		// a reason code instead.
		{"market entry", func(i *TradeIntent) { i.EntryType = EntryMarket; i.EntryPrice = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := validIntent()
			tt.mutate(&intent)
			if err := intent.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntryType_Policy(t *testing.T) {
	if !EntryLimit.RequiresPrice() || !EntryMakerLimit.RequiresPrice() {
		t.Error("limit entries must require a price")
	}
	if EntryMarket.RequiresPrice() {
		t.Error("market entry must not require a price")
	}
	if !EntryMakerLimit.PostOnly() {
		t.Error("maker-first entry must be post-only")
	}
	if EntryLimit.PostOnly() {
		t.Error("plain limit must not be post-only")
	}
}

func TestTradeIntent_FirstTP(t *testing.T) {
	intent := validIntent()
	if _, ok := intent.FirstTP(); ok {
		t.Error("FirstTP() on empty list returned a value")
	}
	intent.TPPrices = []decimal.Decimal{decimal.NewFromInt(51000), decimal.NewFromInt(52000)}
	tp, ok := intent.FirstTP()
	if !ok || !tp.Equal(decimal.NewFromInt(51000)) {
		t.Errorf("FirstTP() = %s, %v; want first level 51000", tp, ok)
	}
}
