// Package routecache provides cache store backends for discovered route
// lists: an in-process map and a Redis-backed store for multi-node
// deployments.
package routecache

import (
	"context"
	"sync"
	"time"

	"remitroute/internal/domain"
)

type memoryEntry struct {
	routes    []domain.CandidateRoute
	expiresAt time.Time
}

// MemoryStore keeps route lists in a process-local map. Expired entries are
// dropped lazily on read; Sweep reclaims the rest.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the stored list and whether a live entry existed.
func (s *MemoryStore) Get(_ context.Context, key string) ([]domain.CandidateRoute, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return entry.routes, true, nil
}

// Set stores routes under key for ttl. An empty list is a valid entry.
func (s *MemoryStore) Set(_ context.Context, key string, routes []domain.CandidateRoute, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{routes: routes, expiresAt: s.now().Add(ttl)}
	return nil
}

// Sweep removes all expired entries and returns how many were evicted.
// Wired as the scheduler's cache_sweep action.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries currently held, live or expired.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
