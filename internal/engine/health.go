package engine

import (
	"sync"
	"time"

	"execgate/internal/domain"
)

// FeedHealth tracks the last-seen timestamps of the public market channel and
// the private account channel. A channel that has never delivered a message
// is stale by definition (zero timestamp).
type FeedHealth struct {
	mu          sync.RWMutex
	lastMarket  time.Time
	lastPrivate time.Time
}

// NewFeedHealth creates a monitor with both channels unseen.
func NewFeedHealth() *FeedHealth {
	return &FeedHealth{}
}

// MarkMarket records a fresh message on the public market channel.
func (h *FeedHealth) MarkMarket() {
	h.mu.Lock()
	h.lastMarket = time.Now()
	h.mu.Unlock()
}

// MarkPrivate records a fresh message on the private account channel.
func (h *FeedHealth) MarkPrivate() {
	h.mu.Lock()
	h.lastPrivate = time.Now()
	h.mu.Unlock()
}

// IsMarketStale reports whether the market channel has been silent longer
// than threshold.
func (h *FeedHealth) IsMarketStale(threshold time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return stale(h.lastMarket, threshold)
}

// IsPrivateStale reports whether the private channel has been silent longer
// than threshold.
func (h *FeedHealth) IsPrivateStale(threshold time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return stale(h.lastPrivate, threshold)
}

// Summary classifies both channels for inclusion in ExecutionState.
func (h *FeedHealth) Summary(threshold time.Duration) domain.FeedSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return domain.FeedSummary{
		Market:  classify(h.lastMarket, threshold),
		Private: classify(h.lastPrivate, threshold),
	}
}

func stale(last time.Time, threshold time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return time.Since(last) > threshold
}

func classify(last time.Time, threshold time.Duration) domain.FeedStatus {
	st := domain.FeedStatus{LastSeen: last}
	switch {
	case last.IsZero():
		st.State = domain.FeedDown
	case time.Since(last) > threshold:
		st.State = domain.FeedStale
	default:
		st.State = domain.FeedUp
	}
	return st
}
