package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"execgate/internal/exchange"
)

// mockAdapter records every venue call and serves programmable responses.
// Safe for use from the handler's background goroutines.
type mockAdapter struct {
	mu sync.Mutex

	placeCalls  []exchange.PlaceOrderRequest
	placeResult exchange.PlaceOrderResult
	placeErr    error

	cancelAllCalls []string
	cancelAllErr   error

	snapshot exchange.Snapshot
	snapErr  error

	notionalQty decimal.Decimal
	notionalErr error

	stopCalls []exchange.TradingStopRequest
	stopErr   error

	leverageCalls []string
	leverageErr   error
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{
		placeResult: exchange.PlaceOrderResult{OrderID: "venue-1"},
	}
}

func (m *mockAdapter) PlaceOrder(_ context.Context, req exchange.PlaceOrderRequest) (exchange.PlaceOrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeErr != nil {
		return exchange.PlaceOrderResult{}, m.placeErr
	}
	m.placeCalls = append(m.placeCalls, req)
	return m.placeResult, nil
}

func (m *mockAdapter) CancelOrder(context.Context, string, string) error {
	return nil
}

func (m *mockAdapter) CancelAll(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelAllErr != nil {
		return m.cancelAllErr
	}
	m.cancelAllCalls = append(m.cancelAllCalls, symbol)
	return nil
}

func (m *mockAdapter) GetSnapshot(_ context.Context, symbol string) (exchange.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapErr != nil {
		return exchange.Snapshot{}, m.snapErr
	}
	snap := m.snapshot
	snap.Symbol = symbol
	return snap, nil
}

func (m *mockAdapter) NotionalToQty(_ context.Context, _ string, _ decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notionalErr != nil {
		return decimal.Decimal{}, m.notionalErr
	}
	return m.notionalQty, nil
}

func (m *mockAdapter) SetTradingStop(_ context.Context, req exchange.TradingStopRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopCalls = append(m.stopCalls, req)
	return nil
}

func (m *mockAdapter) SetLeverage(_ context.Context, symbol string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leverageErr != nil {
		return m.leverageErr
	}
	m.leverageCalls = append(m.leverageCalls, symbol)
	return nil
}

func (m *mockAdapter) placeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.placeCalls)
}

func (m *mockAdapter) cancelAllCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cancelAllCalls)
}

func (m *mockAdapter) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stopCalls)
}

func (m *mockAdapter) leverageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leverageCalls)
}

func (m *mockAdapter) setSnapshot(snap exchange.Snapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
}

// memAudit collects audit topics in memory.
type memAudit struct {
	mu     sync.Mutex
	topics []string
}

func (a *memAudit) Write(topic string, _ any) {
	a.mu.Lock()
	a.topics = append(a.topics, topic)
	a.mu.Unlock()
}

func (a *memAudit) has(topic string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.topics {
		if t == topic {
			return true
		}
	}
	return false
}
