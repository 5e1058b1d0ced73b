package engine

import (
	"context"
	"sync"

	"execgate/internal/exchange"
)

// LeverageCache remembers the last leverage applied per symbol so repeated
// intents do not hit the venue's set-leverage endpoint on every entry.
type LeverageCache struct {
	mu      sync.Mutex
	applied map[string]int
}

// NewLeverageCache creates an empty cache.
func NewLeverageCache() *LeverageCache {
	return &LeverageCache{applied: make(map[string]int)}
}

// Ensure applies the target leverage through the adapter unless the cached
// value already matches. The cache is only updated after the venue call
// succeeds.
func (c *LeverageCache) Ensure(ctx context.Context, adapter exchange.Adapter, symbol string, target int) error {
	c.mu.Lock()
	current, ok := c.applied[symbol]
	c.mu.Unlock()
	if ok && current == target {
		return nil
	}
	if err := adapter.SetLeverage(ctx, symbol, target); err != nil {
		return err
	}
	c.mu.Lock()
	c.applied[symbol] = target
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cached value for a symbol.
func (c *LeverageCache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.applied, symbol)
	c.mu.Unlock()
}
