package engine

import (
	"fmt"
	"sync"
	"time"

	"execgate/internal/exchange"
)

// IdempotencyStore caches placement results keyed by operation-scoped intent
// keys. Entries older than the TTL are treated as absent; the periodic sweep
// bounds memory growth. Thread-safe.
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]idempotencyEntry
}

type idempotencyEntry struct {
	at     time.Time
	result exchange.PlaceOrderResult
}

// NewIdempotencyStore creates a store with the given TTL. The TTL should
// exceed realistic client retry windows.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]idempotencyEntry),
	}
}

// PlaceKey derives the idempotency key for an entry placement.
func PlaceKey(intentID string) string {
	return fmt.Sprintf("place:%s:entry", intentID)
}

// Get returns the cached result for key if it is younger than the TTL.
// Expired entries are evicted on the spot.
func (s *IdempotencyStore) Get(key string) (exchange.PlaceOrderResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return exchange.PlaceOrderResult{}, false
	}
	if time.Since(e.at) > s.ttl {
		delete(s.entries, key)
		return exchange.PlaceOrderResult{}, false
	}
	return e.result, true
}

// Set stores result under key with the current timestamp, overwriting any
// prior entry.
func (s *IdempotencyStore) Set(key string, result exchange.PlaceOrderResult) {
	s.mu.Lock()
	s.entries[key] = idempotencyEntry{at: time.Now(), result: result}
	s.mu.Unlock()
}

// Sweep removes all expired entries and returns how many were dropped.
// Intended to run on the reconcile tick.
func (s *IdempotencyStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key, e := range s.entries {
		if time.Since(e.at) > s.ttl {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live entries, expired or not.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
