package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps values in process memory. It backs dry runs against a
// scratch store and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements BlobStore
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Put implements BlobStore
func (m *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Close implements BlobStore
func (*MemoryStore) Close() error {
	return nil
}
