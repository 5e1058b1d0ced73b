package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"execgate/internal/domain"
	"execgate/internal/exchange"
)

// ReconcilerConfig tunes the periodic venue-truth merge.
type ReconcilerConfig struct {
	Interval time.Duration
	Symbols  []string
	// DesyncGraceTicks is how many consecutive mismatched snapshots a symbol
	// tolerates before the state is flagged DESYNC.
	DesyncGraceTicks int
	// StaleThreshold feeds the health summary refreshed on every merge.
	StaleThreshold time.Duration
}

// Reconciler periodically pulls venue snapshots per tracked symbol and merges
// them into the execution state. Local state is rebuilt from the venue on
// restart through the same path.
type Reconciler struct {
	cfg     ReconcilerConfig
	adapter exchange.Adapter
	state   *StateStore
	idem    *IdempotencyStore
	health  *FeedHealth
	audit   Auditor
	log     *slog.Logger

	mu         sync.Mutex
	mismatches map[string]int
}

// NewReconciler wires a reconciler over the shared engine resources.
func NewReconciler(cfg ReconcilerConfig, adapter exchange.Adapter, state *StateStore, idem *IdempotencyStore, health *FeedHealth, audit Auditor) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.DesyncGraceTicks <= 0 {
		cfg.DesyncGraceTicks = 3
	}
	return &Reconciler{
		cfg:        cfg,
		adapter:    adapter,
		state:      state,
		idem:       idem,
		health:     health,
		audit:      audit,
		log:        slog.Default().With(slog.String("component", "reconciler")),
		mismatches: make(map[string]int),
	}
}

// Run drives the fixed-interval loop until ctx is done. A single symbol's
// failure is audited and never stops the loop.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick reconciles every tracked symbol once and sweeps the idempotency store.
func (r *Reconciler) Tick(ctx context.Context) {
	for _, symbol := range r.cfg.Symbols {
		if err := r.Reconcile(ctx, symbol); err != nil {
			r.audit.Write("reconcile.error", map[string]any{"symbol": symbol, "error": err.Error()})
			r.log.Warn("reconcile failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
	if dropped := r.idem.Sweep(); dropped > 0 {
		r.log.Debug("idempotency sweep", slog.Int("dropped", dropped))
	}
}

// Reconcile fetches one venue snapshot and merges it into the state. Status,
// reason and last intent id are preserved; only orders, position, feed
// summary and timestamp are refreshed — unless the desync predicate trips.
func (r *Reconciler) Reconcile(ctx context.Context, symbol string) error {
	snap, err := r.adapter.GetSnapshot(ctx, symbol)
	if err != nil {
		return err
	}
	r.audit.Write("reconcile.snapshot", map[string]any{
		"symbol": symbol,
		"orders": len(snap.Orders),
		"size":   snap.Position.Size.String(),
	})

	orders := make([]domain.OrderBrief, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		orders = append(orders, mapOrder(o))
	}
	position := mapPosition(symbol, snap.Position)
	desync := r.checkDesync(symbol, snap)

	r.state.Update(func(st *domain.ExecutionState) {
		kept := st.Orders[:0]
		for _, o := range st.Orders {
			if o.Symbol != symbol {
				kept = append(kept, o)
			}
		}
		st.Orders = append(kept, orders...)
		st.Positions[symbol] = position
		st.Feeds = r.health.Summary(r.cfg.StaleThreshold)
		if desync {
			st.Status = domain.StatusDesync
			st.Reason = domain.ReasonStateMismatch
		}
	})
	if desync {
		r.audit.Write("reconcile.desync", map[string]any{"symbol": symbol})
		r.log.Error("state desync detected", slog.String("symbol", symbol))
	}
	return nil
}

// checkDesync trips when the local state claims an entry is resting but the
// venue reports no orders and a flat position for a full grace period. A
// single mismatched snapshot is expected under the venue's eventual
// consistency; persistence is what signals real divergence.
func (r *Reconciler) checkDesync(symbol string, snap exchange.Snapshot) bool {
	local := r.state.Snapshot()
	mismatch := local.Status == domain.StatusEntryPlaced &&
		local.LastIntentID != "" &&
		len(snap.Orders) == 0 &&
		snap.Position.Size.Sign() == 0

	r.mu.Lock()
	defer r.mu.Unlock()
	if !mismatch {
		r.mismatches[symbol] = 0
		return false
	}
	r.mismatches[symbol]++
	return r.mismatches[symbol] >= r.cfg.DesyncGraceTicks
}

func mapOrder(o exchange.VenueOrder) domain.OrderBrief {
	brief := domain.OrderBrief{
		OrderID:    o.OrderID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Price:      o.Price,
		Qty:        o.Qty,
		Status:     o.Status,
		ReduceOnly: o.ReduceOnly,
	}
	if brief.Side == "" {
		brief.Side = domain.SideBuy
	}
	if brief.Status == "" {
		brief.Status = "UNK"
	}
	return brief
}

func mapPosition(symbol string, p exchange.VenuePosition) domain.PositionBrief {
	brief := domain.PositionBrief{
		Symbol:        symbol,
		Size:          p.Size,
		EntryPrice:    p.EntryPrice,
		UnrealizedPnL: p.UnrealizedPnL,
	}
	switch {
	case p.Size.Sign() == 0:
		brief.Side = domain.PositionFlat
	case p.Side == domain.SideSell:
		brief.Side = domain.PositionShort
	default:
		brief.Side = domain.PositionLong
	}
	return brief
}
