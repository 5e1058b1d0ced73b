package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"execgate/internal/domain"
	"execgate/internal/exchange"
)

// HandleIntent validates and executes one trade intent. It is synchronous
// through order placement; the entry-timeout watchdog and protective-stop
// attachment continue in the background after it returns.
func (h *Handler) HandleIntent(ctx context.Context, intent domain.TradeIntent) error {
	if h.health.IsMarketStale(h.cfg.StaleThreshold) || h.health.IsPrivateStale(h.cfg.StaleThreshold) {
		h.state.Update(func(st *domain.ExecutionState) {
			st.Status = domain.StatusStaleData
			st.Reason = domain.ReasonStaleData
			st.LastIntentID = intent.IntentID
			st.Feeds = h.health.Summary(h.cfg.StaleThreshold)
		})
		h.audit.Write("intent.stale", map[string]any{"intentId": intent.IntentID, "symbol": intent.Symbol})
		return ErrStaleData
	}

	h.audit.Write("intent.accepted", intent)
	h.state.Update(func(st *domain.ExecutionState) {
		st.Status = domain.StatusIntentAccepted
		st.Reason = ""
		st.LastIntentID = intent.IntentID
	})

	if intent.EntryType == domain.EntryMarket {
		return h.reject(intent, domain.ReasonMarketDisabled)
	}
	if intent.EntryType.RequiresPrice() && intent.EntryPrice == nil {
		return h.reject(intent, domain.ReasonMissingEntryPrice)
	}

	// Leverage must be in place before quantity resolution or submission.
	if err := h.leverage.Ensure(ctx, h.adapter, intent.Symbol, h.cfg.leverageFor(intent.Symbol)); err != nil {
		h.log.Warn("leverage set failed",
			slog.String("intentId", intent.IntentID),
			slog.String("symbol", intent.Symbol),
			slog.Any("error", err),
		)
		return h.reject(intent, domain.ReasonLeverageSetFailed)
	}

	// Quantity resolution happens before submission; its failure is a
	// rejection, not a venue error.
	qty, err := h.resolveQty(ctx, intent)
	if err != nil {
		h.log.Warn("qty resolution failed",
			slog.String("intentId", intent.IntentID),
			slog.String("symbol", intent.Symbol),
			slog.Any("error", err),
		)
		return h.reject(intent, domain.ReasonQtyResolution)
	}

	key := PlaceKey(intent.IntentID)
	if cached, ok := h.idem.Get(key); ok && cached.OrderID != "" {
		h.audit.Write("order.duplicate", map[string]any{"intentId": intent.IntentID, "orderId": cached.OrderID})
		h.state.Update(func(st *domain.ExecutionState) {
			st.Status = domain.StatusEntryPlaced
			st.Reason = ""
			st.LastIntentID = intent.IntentID
		})
		return nil
	}

	result, err := h.adapter.PlaceOrder(ctx, exchange.PlaceOrderRequest{
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		OrderType:     "Limit",
		Qty:           qty,
		Price:         intent.EntryPrice,
		TimeInForce:   "GTC",
		PostOnly:      intent.EntryType.PostOnly(),
		ReduceOnly:    false,
		PositionIdx:   0,
		ClientOrderID: intent.IntentID,
	})
	if err != nil {
		return fmt.Errorf("place order for %s: %w", intent.IntentID, err)
	}
	h.idem.Set(key, result)
	h.audit.Write("order.placed", map[string]any{
		"intentId": intent.IntentID,
		"orderId":  result.OrderID,
		"symbol":   intent.Symbol,
		"qty":      qty.String(),
	})

	brief := domain.OrderBrief{
		OrderID: result.OrderID,
		Symbol:  intent.Symbol,
		Side:    intent.Side,
		Price:   intent.EntryPrice,
		Qty:     &qty,
		Status:  "NEW",
	}
	h.state.Update(func(st *domain.ExecutionState) {
		st.Status = domain.StatusEntryPlaced
		st.Reason = ""
		st.LastIntentID = intent.IntentID
		kept := st.Orders[:0]
		for _, o := range st.Orders {
			if o.Symbol != intent.Symbol {
				kept = append(kept, o)
			}
		}
		st.Orders = append(kept, brief)
	})

	h.scheduleEntryTimeout(intent)
	go h.attachProtection(intent)

	return nil
}

// reject records a pre-submission rejection. No venue call has been made.
func (h *Handler) reject(intent domain.TradeIntent, reason string) error {
	h.state.Update(func(st *domain.ExecutionState) {
		st.Status = domain.StatusRejected
		st.Reason = reason
		st.LastIntentID = intent.IntentID
	})
	h.audit.Write("intent.rejected", map[string]any{"intentId": intent.IntentID, "reason": reason})
	return &RejectionError{Reason: reason}
}

func (h *Handler) resolveQty(ctx context.Context, intent domain.TradeIntent) (decimal.Decimal, error) {
	if intent.QtyMode == domain.QtyBase {
		return intent.QtyValue, nil
	}
	return h.adapter.NotionalToQty(ctx, intent.Symbol, intent.QtyValue)
}

// scheduleEntryTimeout arms the deferred cancellation for an unfilled entry.
// Cancellation is by condition, not by explicit cancel: the timer re-checks
// currency at fire time.
func (h *Handler) scheduleEntryTimeout(intent domain.TradeIntent) {
	expire := time.Duration(intent.ExpireAfterMs) * time.Millisecond
	time.AfterFunc(expire, func() {
		h.fireEntryTimeout(intent)
	})
}

// entryStillCurrent is the timeout guard: the timer only acts when the state
// still belongs to its intent and the entry is still awaiting a fill.
func (h *Handler) entryStillCurrent(intentID string) bool {
	snap := h.state.Snapshot()
	return snap.LastIntentID == intentID && snap.Status == domain.StatusEntryPlaced
}

func (h *Handler) fireEntryTimeout(intent domain.TradeIntent) {
	if !h.entryStillCurrent(intent.IntentID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.adapter.CancelAll(ctx, intent.Symbol); err != nil {
		// Leave the state for the reconciler; the venue may still hold the
		// order and FLAT would misreport it.
		h.audit.Write("entry.timeout.error", map[string]any{"intentId": intent.IntentID, "error": err.Error()})
		h.log.Warn("entry timeout cancel failed",
			slog.String("intentId", intent.IntentID),
			slog.Any("error", err),
		)
		return
	}
	h.state.Update(func(st *domain.ExecutionState) {
		if st.LastIntentID != intent.IntentID || st.Status != domain.StatusEntryPlaced {
			return
		}
		st.Status = domain.StatusFlat
		st.Reason = domain.ReasonEntryTimeout
		kept := st.Orders[:0]
		for _, o := range st.Orders {
			if o.Symbol != intent.Symbol {
				kept = append(kept, o)
			}
		}
		st.Orders = kept
	})
	h.audit.Write("entry.timeout", map[string]any{"intentId": intent.IntentID, "symbol": intent.Symbol})
}

// attachProtection polls for the position to open and then sets the venue
// protective orders. Best effort: one bounded attempt, failures are audited
// and never roll back the entry.
func (h *Handler) attachProtection(intent domain.TradeIntent) {
	wait := time.Duration(intent.ExpireAfterMs) * time.Millisecond
	if wait > h.cfg.ProtectWaitCap {
		wait = h.cfg.ProtectWaitCap
	}
	deadline := time.Now().Add(wait)

	for {
		if time.Now().After(deadline) {
			h.audit.Write("protect.skipped", map[string]any{
				"intentId": intent.IntentID,
				"reason":   domain.ReasonPositionNotOpen,
			})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := h.adapter.GetSnapshot(ctx, intent.Symbol)
		cancel()
		if err == nil && snap.Position.Size.Sign() != 0 {
			break
		}
		time.Sleep(h.cfg.ProtectPollInterval)
	}

	req := exchange.TradingStopRequest{
		Symbol:              intent.Symbol,
		StopLoss:            intent.SLPrice,
		TrailingStop:        intent.TrailingStop,
		TrailingActivePrice: intent.TrailingActivePrice,
	}
	if tp, ok := intent.FirstTP(); ok {
		req.TakeProfit = &tp
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.adapter.SetTradingStop(ctx, req); err != nil {
		h.audit.Write("protect.error", map[string]any{"intentId": intent.IntentID, "error": err.Error()})
		h.log.Warn("trading stop attach failed",
			slog.String("intentId", intent.IntentID),
			slog.Any("error", err),
		)
		return
	}
	h.audit.Write("protect.set", map[string]any{
		"intentId": intent.IntentID,
		"stopLoss": intent.SLPrice.String(),
	})
}
