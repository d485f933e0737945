package contextstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	messages  []Message
	touchedAt time.Time
}

// MemoryStore is an in-memory Store with lazy expiry. Entries older than
// the configured max age are dropped on the next access rather than by a
// background sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	maxAge  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an in-memory store whose entries expire maxAge
// after their last write.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Get returns the stored history, or nil if the key is missing or expired.
func (s *MemoryStore) Get(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[conversationID]
	if !ok {
		return nil, nil
	}
	if s.expired(entry) {
		delete(s.entries, conversationID)
		return nil, nil
	}

	// Copy so callers cannot mutate stored state.
	messages := make([]Message, len(entry.messages))
	copy(messages, entry.messages)
	return messages, nil
}

// Set stores the history and resets the key's expiry.
func (s *MemoryStore) Set(ctx context.Context, conversationID string, messages []Message) error {
	stored := make([]Message, len(messages))
	copy(stored, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[conversationID] = memoryEntry{messages: stored, touchedAt: s.now()}
	return nil
}

// Delete removes a conversation.
func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationID)
	return nil
}

// PurgeExpired drops every entry past its max age.
func (s *MemoryStore) PurgeExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, id)
		}
	}
	return nil
}

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return s.maxAge > 0 && s.now().Sub(entry.touchedAt) > s.maxAge
}
