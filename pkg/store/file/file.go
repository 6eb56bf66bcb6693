package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"solbank/pkg/store"
)

// FileStore persists the whole key space as a single JSON document on disk,
// the server-side analog of the browser's localStorage. Every mutation
// rewrites the file atomically (write temp, rename).
type FileStore struct {
	mu     sync.Mutex
	path   string
	data   map[string]json.RawMessage
	closed bool
}

// NewFileStore opens or creates the JSON document at path. A corrupt or
// unreadable document fails open construction rather than silently starting
// empty; delete the file to reset.
func NewFileStore(path string) (*FileStore, error) {
	f := &FileStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.data); err != nil {
			return nil, fmt.Errorf("file store: corrupt document %s: %w", path, err)
		}
	}

	return f, nil
}

// Get retrieves the raw value stored under key.
func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, store.ErrClosed
	}

	raw, ok := f.data[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Set stores the raw value under key and flushes the document to disk.
func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return store.ErrInvalidValue
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return store.ErrClosed
	}

	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	f.data[key] = stored
	return f.flushLocked()
}

// Delete removes the key and flushes. Deleting a missing key is not an error.
func (f *FileStore) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return store.ErrClosed
	}

	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

// Keys lists all keys currently present.
func (f *FileStore) Keys(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, store.ErrClosed
	}

	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Name returns the backend identifier.
func (f *FileStore) Name() string {
	return "file"
}

// Close flushes any pending state and marks the store closed.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	err := f.flushLocked()
	f.closed = true
	f.data = nil
	return err
}

// flushLocked writes the document atomically. Callers hold f.mu.
func (f *FileStore) flushLocked() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("file store: mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}
