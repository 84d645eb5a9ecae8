// Package sessionstore persists the active search of each browser session.
// Each session owns exactly one slot; every write replaces the slot wholesale.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// Store holds one (request, result) pair per session.
type Store interface {
	// Load returns the cached search, or ok=false when the slot is empty or expired.
	Load(ctx context.Context, sessionID string) (result domain.SearchResult, ok bool, err error)

	// Replace overwrites the slot.
	Replace(ctx context.Context, sessionID string, result domain.SearchResult) error

	// Clear empties the slot.
	Clear(ctx context.Context, sessionID string) error

	Close() error
}

// Slot is a Store bound to a single session.
type Slot struct {
	store     Store
	sessionID string
}

// NewSlot binds store to sessionID.
func NewSlot(store Store, sessionID string) *Slot {
	return &Slot{store: store, sessionID: sessionID}
}

// Load reads the session's cached search.
func (s *Slot) Load(ctx context.Context) (domain.SearchResult, bool, error) {
	return s.store.Load(ctx, s.sessionID)
}

// Replace overwrites the session's cached search.
func (s *Slot) Replace(ctx context.Context, result domain.SearchResult) error {
	return s.store.Replace(ctx, s.sessionID, result)
}

// Clear empties the session's cached search.
func (s *Slot) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.sessionID)
}

// MemoryStore keeps slots in process memory with a sliding TTL.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   timeutil.Clock
}

type memoryEntry struct {
	result    domain.SearchResult
	expiresAt time.Time
}

// NewMemoryStore creates an in-process store. A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration, clock timeutil.Clock) *MemoryStore {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (domain.SearchResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return domain.SearchResult{}, false, nil
	}
	if s.ttl > 0 && !s.clock.Now().Before(entry.expiresAt) {
		delete(s.entries, sessionID)
		return domain.SearchResult{}, false, nil
	}
	return entry.result, true, nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(_ context.Context, sessionID string, result domain.SearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = memoryEntry{
		result:    result,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure interfaces are implemented.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
