package memory

import (
	"context"
	"sync"

	"solbank/pkg/store"
)

// MemoryStore is an in-memory implementation of store.Store. It is the
// default backend for tests and single-process use; data does not survive
// a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	name   string
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		name: "memory",
	}
}

// Get retrieves the raw value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, store.ErrClosed
	}

	raw, ok := m.data[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}

	// Return a copy so callers cannot mutate stored state.
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Set stores the raw value under key.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrClosed
	}

	delete(m.data, key)
	return nil
}

// Keys lists all keys currently present.
func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, store.ErrClosed
	}

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Name returns the backend identifier.
func (m *MemoryStore) Name() string {
	return m.name
}

// Close marks the store closed and releases its data.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
