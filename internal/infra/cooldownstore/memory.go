package cooldownstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore tracks model cooldowns in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	failures map[string]time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		failures: make(map[string]time.Time),
	}
}

// MarkFailed records or overwrites the failure timestamp for a model.
func (s *MemoryStore) MarkFailed(_ context.Context, modelID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[modelID] = at
	return nil
}

// FailedAt returns the recorded failure time, if any.
func (s *MemoryStore) FailedAt(_ context.Context, modelID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.failures[modelID]
	return at, ok, nil
}

// PurgeBefore drops entries older than the cutoff.
func (s *MemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for model, at := range s.failures {
		if !at.After(cutoff) {
			delete(s.failures, model)
		}
	}
	return nil
}

// Reset clears the whole table.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]time.Time)
	return nil
}

// Len reports the number of live entries; used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}
