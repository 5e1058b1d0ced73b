package engine

import (
	"sync"
	"time"

	"execgate/internal/domain"
)

// StateStore owns the process-wide ExecutionState. Writers never mutate the
// held state in place: Update clones the current state, applies the mutation
// to the clone and swaps, so readers always see a consistent whole and every
// status-bearing write carries its own freshly-read merge base.
type StateStore struct {
	mu    sync.RWMutex
	state domain.ExecutionState
}

// NewStateStore creates a store holding the FLAT/IDLE baseline.
func NewStateStore() *StateStore {
	return &StateStore{state: domain.NewExecutionState()}
}

// Snapshot returns a deep copy of the current state.
func (s *StateStore) Snapshot() domain.ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to a clone of the current state and installs the result
// with a fresh timestamp. The last writer wins.
func (s *StateStore) Update(fn func(st *domain.ExecutionState)) domain.ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	fn(&next)
	next.Timestamp = time.Now()
	s.state = next
	return next.Clone()
}
