package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/bookwell/authcore/clock"
)

// MemoryStore keeps entries in process memory. It suits single-instance deployments
// and tests; entries do not survive a restart.
type MemoryStore struct {
	clock   clock.Clock
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore. A nil clock means the system clock.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryStore{
		clock:   clk,
		entries: make(map[string]Entry),
	}
}

// Revoke inserts entry unless a live entry for the same session id exists.
func (s *MemoryStore) Revoke(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.SessionID]; ok && existing.ExpiresAt >= now {
		return nil
	}
	s.entries[entry.SessionID] = entry
	return nil
}

// Lookup reports the live entry for sessionID. Entries past their retention deadline
// are treated as absent.
func (s *MemoryStore) Lookup(ctx context.Context, sessionID string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}

	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok || entry.ExpiresAt < s.clock.Now().Unix() {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Prune removes entries whose retention deadline is before now.
func (s *MemoryStore) Prune(_ context.Context, now time.Time) (int64, error) {
	cutoff := now.Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for sid, entry := range s.entries {
		if entry.ExpiresAt < cutoff {
			delete(s.entries, sid)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
