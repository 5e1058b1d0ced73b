package infra

import "time"

// Backoff computes capped exponential delays for reconnect loops.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is tuned for venue websocket reconnects.
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Max: 60 * time.Second}
}

// Delay returns Base * 2^attempt, capped at Max. Negative attempts return
// Base.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return b.Base
	}
	// 2^30 seconds already dwarfs any sensible cap.
	if attempt > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<attempt)
	if d > b.Max {
		return b.Max
	}
	return d
}
