package credential

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.value == "" {
		return "", ErrNotFound
	}
	return m.value, nil
}

func (m *MemoryStore) Set(_ context.Context, credential string) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	m.mu.Lock()
	m.value = credential
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.value = ""
	m.mu.Unlock()
	return nil
}
