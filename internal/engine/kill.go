package engine

import (
	"context"
	"fmt"
	"log/slog"

	"execgate/internal/domain"
)

// KillSwitch flattens a symbol: cancels every open order and forces the state
// to FLAT. It is callable at any point, including mid-intent, and it never
// consults feed health — an operator flattening risk must not be blocked by
// a data outage. Cancel failures propagate to the caller.
func (h *Handler) KillSwitch(ctx context.Context, symbol string) error {
	if err := h.adapter.CancelAll(ctx, symbol); err != nil {
		h.audit.Write("kill.error", map[string]any{"symbol": symbol, "error": err.Error()})
		return fmt.Errorf("kill switch cancel-all %s: %w", symbol, err)
	}
	h.state.Update(func(st *domain.ExecutionState) {
		st.Status = domain.StatusFlat
		st.Reason = domain.ReasonKillSwitch
		kept := st.Orders[:0]
		for _, o := range st.Orders {
			if o.Symbol != symbol {
				kept = append(kept, o)
			}
		}
		st.Orders = kept
	})
	// An operator flattening a symbol may also touch its venue settings;
	// force the next intent to re-apply leverage.
	h.leverage.Invalidate(symbol)
	h.audit.Write("kill.switch", map[string]any{"symbol": symbol})
	h.log.Warn("kill switch engaged", slog.String("symbol", symbol))
	return nil
}
