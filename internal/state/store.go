package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/quotedesk/internal/quote"
)

// Snapshot is the latest server view of one shock.
type Snapshot struct {
	Shock     quote.Shock
	HasShock  bool
	Supplies  []quote.SupplyLine
	Workforce []quote.WorkforceLine
	// Revision increases on every successful fetch. The UI reconciles its
	// tables once per revision.
	Revision            uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(shock *quote.Shock, supplies []quote.SupplyLine, workforce []quote.WorkforceLine, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Supplies = slices.Clone(supplies)
	s.snapshot.Workforce = slices.Clone(workforce)
	if shock != nil {
		s.snapshot.Shock = *shock
		s.snapshot.HasShock = true
	}
	s.snapshot.Revision++
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Supplies = slices.Clone(s.snapshot.Supplies)
	snap.Workforce = slices.Clone(s.snapshot.Workforce)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Revision returns the current revision without copying rows.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Revision
}
