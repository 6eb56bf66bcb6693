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

// AccountRepo provides typed access to the accounts collection. Updates carry
// an expected-version check so concurrent writers fail with
// store.ErrVersionConflict instead of clobbering each other.
type AccountRepo struct {
	store store.Store
	now   func() time.Time
	mu    *sync.Mutex
}

// All returns every stored account.
func (r *AccountRepo) All(ctx context.Context) ([]model.Account, error) {
	return loadList[model.Account](ctx, r.store, store.KeyAccounts)
}

// ByUser returns the accounts owned by the given user.
func (r *AccountRepo) ByUser(ctx context.Context, userID string) ([]model.Account, error) {
	accounts, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Account
	for _, a := range accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ReplaceAll overwrites the local collection with a snapshot fetched from
// the backend. Versions already present locally are preserved when higher,
// so queued local edits keep winning their version checks.
func (r *AccountRepo) ReplaceAll(ctx context.Context, accounts []model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := loadList[model.Account](ctx, r.store, store.KeyAccounts)
	if err != nil {
		return err
	}
	versions := make(map[string]int64, len(existing))
	for _, a := range existing {
		versions[a.ID] = a.Version
	}
	for i := range accounts {
		if v, ok := versions[accounts[i].ID]; ok && v > accounts[i].Version {
			accounts[i].Version = v
		}
	}
	return saveList(ctx, r.store, store.KeyAccounts, accounts)
}

// ByID returns the account with the given id, or ErrNotFound.
func (r *AccountRepo) ByID(ctx context.Context, id string) (model.Account, error) {
	accounts, err := r.All(ctx)
	if err != nil {
		return model.Account{}, err
	}

	for _, a := range accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("%w: account %s", ErrNotFound, id)
}

// Create assigns an id, opening timestamps, and version 1, then persists.
func (r *AccountRepo) Create(ctx context.Context, account model.Account) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.All(ctx)
	if err != nil {
		return model.Account{}, err
	}

	now := r.now()
	account.ID = uuid.NewString()
	account.Version = 1
	if account.OpenedAt.IsZero() {
		account.OpenedAt = now
	}
	account.LastActivity = now
	if account.Status == "" {
		account.Status = model.AccountActive
	}

	accounts = append(accounts, account)
	if err := saveList(ctx, r.store, store.KeyAccounts, accounts); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Update replaces the stored account if the caller's Version matches. The
// stored Version is bumped on success.
func (r *AccountRepo) Update(ctx context.Context, account model.Account) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.All(ctx)
	if err != nil {
		return model.Account{}, err
	}

	for i, a := range accounts {
		if a.ID != account.ID {
			continue
		}
		if a.Version != account.Version {
			return model.Account{}, fmt.Errorf("%w: account %s at version %d, expected %d",
				store.ErrVersionConflict, account.ID, a.Version, account.Version)
		}
		account.Version++
		account.LastActivity = r.now()
		accounts[i] = account
		if err := saveList(ctx, r.store, store.KeyAccounts, accounts); err != nil {
			return model.Account{}, err
		}
		return account, nil
	}
	return model.Account{}, fmt.Errorf("%w: account %s", ErrNotFound, account.ID)
}

// AddTransaction prepends a transaction to the account's history and applies
// its signed amount to the balance in one persisted step.
func (r *AccountRepo) AddTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.All(ctx)
	if err != nil {
		return model.Transaction{}, err
	}

	for i, a := range accounts {
		if a.ID != accountID {
			continue
		}

		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if tx.Timestamp.IsZero() {
			tx.Timestamp = r.now()
		}
		tx.AccountID = accountID

		a.Transactions = append([]model.Transaction{tx}, a.Transactions...)
		a.Balance += tx.Amount
		a.LastActivity = r.now()
		a.Version++
		accounts[i] = a

		if err := saveList(ctx, r.store, store.KeyAccounts, accounts); err != nil {
			return model.Transaction{}, err
		}
		return tx, nil
	}
	return model.Transaction{}, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
}

// SetTransactionStatus applies the only mutation transactions allow: a status
// transition, with the remote error payload when the transition is to failed.
// Amounts and identities never change after the record is written.
func (r *AccountRepo) SetTransactionStatus(ctx context.Context, accountID, txID string, status model.TransactionStatus, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.All(ctx)
	if err != nil {
		return err
	}

	for i, a := range accounts {
		if a.ID != accountID {
			continue
		}
		for j, tx := range a.Transactions {
			if tx.ID != txID {
				continue
			}
			a.Transactions[j].Status = status
			if cause != "" {
				a.Transactions[j].Error = cause
			}
			a.Version++
			accounts[i] = a
			return saveList(ctx, r.store, store.KeyAccounts, accounts)
		}
		return fmt.Errorf("%w: transaction %s", ErrNotFound, txID)
	}
	return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
}

// Transactions returns the stored history for an account, most recent first.
func (r *AccountRepo) Transactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	account, err := r.ByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Transactions, nil
}
