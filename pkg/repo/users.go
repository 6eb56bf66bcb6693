package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"solbank/pkg/model"
	"solbank/pkg/store"
)

// UserRepo provides typed access to the users collection and the
// current-user singleton.
type UserRepo struct {
	store store.Store
	now   func() time.Time
	mu    *sync.Mutex
}

// All returns every stored user.
func (r *UserRepo) All(ctx context.Context) ([]model.User, error) {
	return loadList[model.User](ctx, r.store, store.KeyUsers)
}

// ByID returns the user with the given id, or ErrNotFound.
func (r *UserRepo) ByID(ctx context.Context, id string) (model.User, error) {
	users, err := r.All(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
}

// ByWalletAddress returns the user owning the given wallet, or ErrNotFound.
func (r *UserRepo) ByWalletAddress(ctx context.Context, address string) (model.User, error) {
	users, err := r.All(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.WalletAddress == address {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: wallet %s", ErrNotFound, address)
}

// Create persists a new user. Wallet addresses are unique.
func (r *UserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.All(ctx)
	if err != nil {
		return model.User{}, err
	}

	for _, u := range users {
		if u.WalletAddress == user.WalletAddress {
			return model.User{}, ErrDuplicateWallet
		}
	}

	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}

	users = append(users, user)
	if err := saveList(ctx, r.store, store.KeyUsers, users); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Update merges the given fields into the stored user. If the updated user is
// the current user, the singleton is refreshed too.
func (r *UserRepo) Update(ctx context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.All(ctx)
	if err != nil {
		return model.User{}, err
	}

	for i, u := range users {
		if u.ID != user.ID {
			continue
		}
		users[i] = user
		if err := saveList(ctx, r.store, store.KeyUsers, users); err != nil {
			return model.User{}, err
		}

		current, err := r.currentLocked(ctx)
		if err == nil && current.ID == user.ID {
			if err := store.SetJSON(ctx, r.store, store.KeyCurrentUser, user); err != nil {
				return model.User{}, err
			}
		}
		return user, nil
	}
	return model.User{}, fmt.Errorf("%w: user %s", ErrNotFound, user.ID)
}

// Current returns the current-user singleton, or ErrNotFound if unset.
func (r *UserRepo) Current(ctx context.Context) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked(ctx)
}

func (r *UserRepo) currentLocked(ctx context.Context) (model.User, error) {
	var user model.User
	err := store.GetJSON(ctx, r.store, store.KeyCurrentUser, &user)
	if store.IsNotFound(err) || (err == nil && user.ID == "") {
		return model.User{}, fmt.Errorf("%w: current user", ErrNotFound)
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// SetCurrent stores the current-user singleton. A nil user clears it.
func (r *UserRepo) SetCurrent(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user == nil {
		return r.store.Delete(ctx, store.KeyCurrentUser)
	}
	return store.SetJSON(ctx, r.store, store.KeyCurrentUser, *user)
}
