package seen

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]struct{})}
}

// Contains reports whether the fingerprint was recorded.
func (s *MemoryStore) Contains(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[fingerprint]
	return ok, nil
}

// Add records the fingerprint.
func (s *MemoryStore) Add(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fingerprint] = struct{}{}
	return nil
}

// Name identifies the backing tier.
func (s *MemoryStore) Name() string { return "memory" }

// Len returns the number of recorded fingerprints.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
