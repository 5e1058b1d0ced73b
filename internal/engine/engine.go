// Package engine turns trade intents into venue orders and keeps the local
// execution state synchronized with the venue. All shared mutable resources
// (state, idempotency cache, leverage cache, feed health) are explicit,
// mutex-guarded fields owned here.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"execgate/internal/exchange"
)

// Auditor is the append-only event sink. Writes are fire-and-forget; a
// failing sink must swallow its own errors and never disturb control flow.
type Auditor interface {
	Write(topic string, payload any)
}

// ErrStaleData blocks intent handling while either feed is stale.
var ErrStaleData = errors.New("market or private data feed is stale")

// RejectionError reports an intent rejected before order submission. The
// reason code matches the one recorded in ExecutionState.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("intent rejected: %s", e.Reason)
}

// Config holds the engine tuning knobs. Durations are fields, not constants,
// so tests can compress time.
type Config struct {
	// StaleThreshold is the maximum feed silence tolerated before intents
	// are blocked.
	StaleThreshold time.Duration
	// ProtectPollInterval is the snapshot polling cadence while waiting for
	// the entry to fill.
	ProtectPollInterval time.Duration
	// ProtectWaitCap bounds the protective-stop wait regardless of the
	// intent's own expiry.
	ProtectWaitCap time.Duration
	// Leverage maps symbol to its target leverage multiplier.
	Leverage map[string]int
	// DefaultLeverage applies to symbols missing from Leverage.
	DefaultLeverage int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		StaleThreshold:      3 * time.Second,
		ProtectPollInterval: time.Second,
		ProtectWaitCap:      30 * time.Second,
		Leverage:            map[string]int{},
		DefaultLeverage:     1,
	}
}

func (c Config) leverageFor(symbol string) int {
	if lv, ok := c.Leverage[symbol]; ok {
		return lv
	}
	return c.DefaultLeverage
}

// Handler is the intent state machine. One Handler serves all symbols; it is
// safe for concurrent use with the Reconciler and the kill switch.
type Handler struct {
	cfg      Config
	adapter  exchange.Adapter
	state    *StateStore
	idem     *IdempotencyStore
	leverage *LeverageCache
	health   *FeedHealth
	audit    Auditor
	log      *slog.Logger
}

// NewHandler wires a Handler over its shared resources.
func NewHandler(cfg Config, adapter exchange.Adapter, state *StateStore, idem *IdempotencyStore, leverage *LeverageCache, health *FeedHealth, audit Auditor) *Handler {
	if cfg.ProtectPollInterval <= 0 {
		cfg.ProtectPollInterval = time.Second
	}
	if cfg.ProtectWaitCap <= 0 {
		cfg.ProtectWaitCap = 30 * time.Second
	}
	return &Handler{
		cfg:      cfg,
		adapter:  adapter,
		state:    state,
		idem:     idem,
		leverage: leverage,
		health:   health,
		audit:    audit,
		log:      slog.Default().With(slog.String("component", "engine")),
	}
}
