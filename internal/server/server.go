// Package server exposes the engine's HTTP surface: state inspection, intent
// submission and the kill switch.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"execgate/internal/domain"
	"execgate/internal/engine"
)

// Engine is the subset of engine behavior the HTTP surface drives.
type Engine interface {
	HandleIntent(ctx context.Context, intent domain.TradeIntent) error
	KillSwitch(ctx context.Context, symbol string) error
}

// Server routes the three engine endpoints.
type Server struct {
	engine Engine
	state  *engine.StateStore
	log    *slog.Logger
}

// New creates a Server over the engine and its state store.
func New(eng Engine, state *engine.StateStore) *Server {
	return &Server{
		engine: eng,
		state:  state,
		log:    slog.Default().With(slog.String("component", "http")),
	}
}

// Routes returns the configured mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /intent", s.handleIntent)
	mux.HandleFunc("POST /kill", s.handleKill)
	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleIntent responds as soon as the entry order is placed (or rejected);
// protective-stop attachment continues in the background.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var intent domain.TradeIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "malformed intent: " + err.Error()})
		return
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	if err := intent.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	err := s.engine.HandleIntent(r.Context(), intent)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "intentId": intent.IntentID})
	case errors.Is(err, engine.ErrStaleData):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok": false, "intentId": intent.IntentID, "error": err.Error(),
		})
	default:
		var rej *engine.RejectionError
		if errors.As(err, &rej) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"ok": false, "intentId": intent.IntentID, "reason": rej.Reason,
			})
			return
		}
		s.log.Error("intent submission failed",
			slog.String("intentId", intent.IntentID),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"ok": false, "intentId": intent.IntentID, "error": err.Error(),
		})
	}
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "symbol is required"})
		return
	}
	if err := s.engine.KillSwitch(r.Context(), body.Symbol); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "symbol": body.Symbol})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
