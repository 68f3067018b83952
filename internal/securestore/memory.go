package securestore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory [SecretStore] for tests and ephemeral
// profiles. Values are lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ SecretStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements [SecretStore].
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return value, nil
}

// Set implements [SecretStore].
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

// Delete implements [SecretStore].
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}
