package convstore

import (
	"context"
	"strings"
	"sync"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

// MemoryStore keeps conversation history in process memory. Threads are
// created lazily and never evicted; that growth is an accepted tradeoff for
// a process-lifetime cache.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]chat.Message
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string][]chat.Message),
	}
}

// Append adds a message to the thread, creating the thread on first use.
// Empty-text messages are silently dropped to keep the store invariant.
func (s *MemoryStore) Append(_ context.Context, threadID string, msg chat.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], msg)
	return nil
}

// History returns the thread's messages in insertion order.
func (s *MemoryStore) History(_ context.Context, threadID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.threads[threadID]
	history := make([]chat.Message, len(stored))
	copy(history, stored)
	return history, nil
}
