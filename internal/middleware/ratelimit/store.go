package ratelimit

import (
	"sync"
	"time"
)

// CounterStore is the backing counter for the fixed-window algorithm. Hit must
// apply the read-check-increment as one atomic step per identifier so that
// concurrent callers targeting the same identifier never lose updates. The
// in-memory implementation below is per-process; a shared external counter can
// be swapped in without touching the limiter's algorithm.
type CounterStore interface {
	// Hit records one request for the identifier and returns the request
	// count inside the current window along with the window's reset time. A
	// hit observed after the reset time starts a fresh window.
	Hit(identifier string, window time.Duration) (count int, resetAt time.Time)

	// Purge drops entries whose window elapsed before now.
	Purge(now time.Time)

	// Reset clears all state. For test isolation.
	Reset()
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a mutex-guarded in-memory CounterStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*windowEntry)}
}

// Hit implements CounterStore.
func (s *MemoryStore) Hit(identifier string, window time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.entries[identifier]
	if !ok || !now.Before(entry.resetAt) {
		entry = &windowEntry{count: 1, resetAt: now.Add(window)}
		s.entries[identifier] = entry
		return entry.count, entry.resetAt
	}

	entry.count++
	return entry.count, entry.resetAt
}

// Purge implements CounterStore.
func (s *MemoryStore) Purge(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for identifier, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, identifier)
		}
	}
}

// Reset implements CounterStore.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*windowEntry)
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
