package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"solbank/pkg/store"
)

// Common repository errors.
var (
	ErrNotFound        = errors.New("repo: not found")
	ErrDuplicateWallet = errors.New("repo: user with this wallet address already exists")
)

// Repositories bundles the typed views over a single store.Store. A
// Repositories value is constructed once and injected wherever entity access
// is needed; it owns no store lifecycle (the store's owner closes it).
type Repositories struct {
	Users    *UserRepo
	Accounts *AccountRepo
	Goals    *GoalRepo
	Cards    *CardRepo
}

// New creates repositories over the given store using the real clock.
func New(s store.Store) *Repositories {
	return NewWithClock(s, time.Now)
}

// NewWithClock creates repositories with an injected clock for tests.
func NewWithClock(s store.Store, now func() time.Time) *Repositories {
	// One mutex per collection key: read-modify-write sequences on the same
	// list must not interleave within a process. Cross-process conflicts are
	// caught by entity version checks instead.
	return &Repositories{
		Users:    &UserRepo{store: s, now: now, mu: &sync.Mutex{}},
		Accounts: &AccountRepo{store: s, now: now, mu: &sync.Mutex{}},
		Goals:    &GoalRepo{store: s, now: now, mu: &sync.Mutex{}},
		Cards:    &CardRepo{store: s, mu: &sync.Mutex{}},
	}
}

// loadList reads a JSON array at key, treating a missing key as empty.
func loadList[T any](ctx context.Context, s store.Store, key string) ([]T, error) {
	var list []T
	err := store.GetJSON(ctx, s, key, &list)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func saveList[T any](ctx context.Context, s store.Store, key string, list []T) error {
	return store.SetJSON(ctx, s, key, list)
}
