// Package feed runs the venue websocket channels whose only job, as far as
// the engine is concerned, is to keep the feed health monitor fresh. Market
// data consumers hang off the same connections out of scope here.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"execgate/internal/engine"
	"execgate/internal/exchange/bybit"
	"execgate/internal/infra"
)

const (
	handshakeTimeout = 10 * time.Second
	pingInterval     = 20 * time.Second
	authGrace        = 5 * time.Second
)

// Worker maintains one websocket connection with reconnect and keepalive.
// Each received message marks the corresponding health channel.
type Worker struct {
	url       string
	backoff   infra.Backoff
	subscribe func(*websocket.Conn) error
	onMessage func([]byte)
	log       *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublicWorker subscribes to ticker topics for the tracked symbols and
// marks the market channel on every message.
func NewPublicWorker(url string, symbols []string, health *engine.FeedHealth) *Worker {
	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		topics = append(topics, "tickers."+s)
	}
	return &Worker{
		url:     url,
		backoff: infra.DefaultBackoff(),
		subscribe: func(conn *websocket.Conn) error {
			return conn.WriteJSON(map[string]any{"op": "subscribe", "args": topics})
		},
		onMessage: func([]byte) { health.MarkMarket() },
		log:       slog.Default().With(slog.String("component", "feed.public")),
	}
}

// NewPrivateWorker authenticates and subscribes to order/position topics,
// marking the private channel on every message.
func NewPrivateWorker(url string, signer *bybit.Signer, health *engine.FeedHealth) *Worker {
	return &Worker{
		url:     url,
		backoff: infra.DefaultBackoff(),
		subscribe: func(conn *websocket.Conn) error {
			expires := time.Now().Add(authGrace).UnixMilli()
			apiKey, signature := signer.WSAuth(expires)
			if err := conn.WriteJSON(map[string]any{
				"op":   "auth",
				"args": []any{apiKey, expires, signature},
			}); err != nil {
				return err
			}
			return conn.WriteJSON(map[string]any{
				"op":   "subscribe",
				"args": []string{"order", "position", "wallet"},
			})
		},
		onMessage: func([]byte) { health.MarkPrivate() },
		log:       slog.Default().With(slog.String("component", "feed.private")),
	}
}

// Start runs the connection loop until Stop or ctx cancellation.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
}

// Stop tears down the connection and waits for the loop to exit.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConn()
	w.wg.Wait()
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			delay := w.backoff.Delay(attempt)
			attempt++
			w.log.Warn("feed connect failed",
				slog.Any("error", err),
				slog.Duration("retryIn", delay),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		w.readLoop(ctx)
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	if err := w.subscribe(conn); err != nil {
		conn.Close()
		return err
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	go w.pingLoop(ctx, conn)
	w.log.Info("feed connected", slog.String("url", w.url))
	return nil
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn == nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("feed read failed", slog.Any("error", err))
			}
			w.closeConn()
			return
		}
		if isControlFrame(msg) {
			continue
		}
		w.onMessage(msg)
	}
}

func (w *Worker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			current := w.conn
			w.mu.Unlock()
			if current != conn {
				return
			}
			if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
				return
			}
		}
	}
}

func (w *Worker) closeConn() {
	w.mu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.mu.Unlock()
}

// isControlFrame filters op acks (subscribe/auth/pong) that carry no data and
// must not count as feed liveness.
func isControlFrame(msg []byte) bool {
	var probe struct {
		Op      string `json:"op"`
		RetMsg  string `json:"ret_msg"`
		Success *bool  `json:"success"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		return false
	}
	return probe.Op != "" || probe.Success != nil || probe.RetMsg == "pong"
}
