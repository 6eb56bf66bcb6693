package data

import (
	"context"

	"go.uber.org/zap"

	"solbank/pkg/model"
)

// Accounts lists accounts, backend-first. A reachable backend refreshes the
// local snapshot; a failed call degrades to local data.
func (s *Service) Accounts(ctx context.Context) ([]model.Account, error) {
	if s.Online() {
		accounts, err := s.remote.GetAccounts(ctx)
		if err == nil {
			if cacheErr := s.repos.Accounts.ReplaceAll(ctx, accounts); cacheErr != nil {
				s.logger.Warn("cache accounts snapshot", zap.Error(cacheErr))
			}
			return accounts, nil
		}
		s.degrade(ctx, "accounts", err)
	}
	return s.repos.Accounts.All(ctx)
}

// Account fetches one account, backend-first with local fallback.
func (s *Service) Account(ctx context.Context, id string) (model.Account, error) {
	if s.Online() {
		account, err := s.remote.GetAccount(ctx, id)
		if err == nil {
			return account, nil
		}
		s.degrade(ctx, "accounts", err)
	}
	return s.repos.Accounts.ByID(ctx, id)
}

// Transactions lists an account's transactions, backend-first.
func (s *Service) Transactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if s.Online() {
		txs, err := s.remote.GetTransactions(ctx, accountID)
		if err == nil {
			return txs, nil
		}
		s.degrade(ctx, "transactions", err)
	}
	return s.repos.Accounts.Transactions(ctx, accountID)
}

// CreateAccount creates the account locally, then pushes it to the backend
// or queues the push. The local write is the source of truth for the caller.
func (s *Service) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	created, err := s.repos.Accounts.Create(ctx, account)
	if err != nil {
		return model.Account{}, err
	}
	s.pushOrEnqueue(ctx, "accounts",
		func() error { _, err := s.remote.CreateAccount(ctx, created); return err },
		func() { s.queue.EnqueueCreateAccount(ctx, created) })
	return created, nil
}

// UpdateAccount applies an account update locally, then pushes or queues it.
// The update carries the caller's expected version; a conflict surfaces as
// store.ErrVersionConflict before anything leaves the device.
func (s *Service) UpdateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	updated, err := s.repos.Accounts.Update(ctx, account)
	if err != nil {
		return model.Account{}, err
	}
	s.pushOrEnqueue(ctx, "accounts",
		func() error { _, err := s.remote.UpdateAccount(ctx, updated.ID, updated); return err },
		func() { s.queue.EnqueueUpdateAccount(ctx, updated.ID, updated) })
	return updated, nil
}

// RecordTransaction appends a transaction to an account locally, then pushes
// or queues it.
func (s *Service) RecordTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error) {
	saved, err := s.repos.Accounts.AddTransaction(ctx, accountID, tx)
	if err != nil {
		return model.Transaction{}, err
	}
	s.pushOrEnqueue(ctx, "transactions",
		func() error { _, err := s.remote.CreateTransaction(ctx, accountID, saved); return err },
		func() { s.queue.EnqueueCreateTransaction(ctx, accountID, saved) })
	return saved, nil
}

// Cards lists cards. Cards are local-only reference data.
func (s *Service) Cards(ctx context.Context, userID string) ([]model.Card, error) {
	return s.repos.Cards.ByUser(ctx, userID)
}

// pushOrEnqueue tries the remote write when online and queues it otherwise.
// Any push failure queues the write for replay; the local copy already
// succeeded and is what the caller sees. A write the backend keeps
// rejecting exhausts its retries and lands on the dead-letter list.
func (s *Service) pushOrEnqueue(ctx context.Context, resource string, push func() error, enqueue func()) {
	if !s.Online() {
		enqueue()
		return
	}
	err := push()
	if err == nil {
		return
	}
	s.degrade(ctx, resource, err)
	enqueue()
}
