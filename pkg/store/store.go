package store

import (
	"context"
	"encoding/json"
)

// Store is a key-based JSON document store. Values are opaque byte slices
// holding JSON; callers use GetJSON/SetJSON for typed access.
//
// A Store has an explicit lifecycle: it is constructed, injected into the
// components that need it, and closed by its owner. There is no last-writer-
// wins escape hatch at this level; entity-level versioning lives in repo.
type Store interface {
	// Get retrieves the raw value stored under key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the raw value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all keys currently present.
	Keys(ctx context.Context) ([]string, error)

	// Name returns the identifier for this backend (e.g. "memory", "file", "redis").
	Name() string

	// Close releases any resources held by the store.
	Close() error
}

// Well-known keys for the persisted state layout.
const (
	KeyUsers       = "users"
	KeyAccounts    = "accounts"
	KeyCurrentUser = "current_user"
	KeyGoals       = "savings_goals"
	KeyCards       = "cards"
	KeyQueue       = "offline_queue"
	KeyDeadLetter  = "offline_dead_letter"
	KeySession     = "wallet_session"
)

// GetJSON reads the value at key and unmarshals it into out.
// A missing key returns ErrKeyNotFound with out untouched.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return WrapError(ErrInvalidValue, s.Name(), "decode "+key)
	}
	return nil
}

// SetJSON marshals v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return WrapError(ErrInvalidValue, s.Name(), "encode "+key)
	}
	return s.Set(ctx, key, raw)
}
