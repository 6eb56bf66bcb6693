package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"solbank/pkg/model"
	"solbank/pkg/store"
	"solbank/pkg/store/memory"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewWithClock(memory.NewMemoryStore(), func() time.Time { return now })
}

func TestAccountRepo_CreateAndByID(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{
		UserID:  "u1",
		Name:    "Trading",
		Kind:    model.AccountTrading,
		Balance: 10,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Expected an assigned id")
	}
	if created.Version != 1 {
		t.Errorf("Expected version 1, got %d", created.Version)
	}
	if created.Status != model.AccountActive {
		t.Errorf("Expected active status, got %s", created.Status)
	}

	got, err := repos.Accounts.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Name != "Trading" {
		t.Errorf("Expected Trading, got %s", got.Name)
	}

	if _, err := repos.Accounts.ByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepo_Update_VersionConflict(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Savings"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// First writer wins and bumps the version.
	first := created
	first.Name = "Savings A"
	updated, err := repos.Accounts.Update(ctx, first)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("Expected version %d, got %d", created.Version+1, updated.Version)
	}

	// Second writer still holds the old version and must fail.
	second := created
	second.Name = "Savings B"
	if _, err := repos.Accounts.Update(ctx, second); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	// The first write survived.
	got, err := repos.Accounts.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Name != "Savings A" {
		t.Errorf("Expected Savings A, got %s", got.Name)
	}
}

func TestAccountRepo_AddTransaction(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Balance: 10})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tx, err := repos.Accounts.AddTransaction(ctx, created.ID, model.Transaction{
		Amount: -4,
		Kind:   model.TxTransfer,
		Status: model.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if tx.ID == "" {
		t.Error("Expected an assigned transaction id")
	}

	got, err := repos.Accounts.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Balance != 6 {
		t.Errorf("Expected balance 6, got %v", got.Balance)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].ID != tx.ID {
		t.Fatalf("Expected the new transaction first, got %+v", got.Transactions)
	}

	// Balance stays the sum of signed amounts plus the opening balance.
	if sum := model.SumAmounts(got.Transactions); got.Balance != 10+sum {
		t.Errorf("Balance %v does not match opening 10 plus sum %v", got.Balance, sum)
	}
}

func TestAccountRepo_AddTransaction_NewestFirst(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repos.Accounts.AddTransaction(ctx, created.ID, model.Transaction{Amount: 1, Description: "first"}); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if _, err := repos.Accounts.AddTransaction(ctx, created.ID, model.Transaction{Amount: 2, Description: "second"}); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	txs, err := repos.Accounts.Transactions(ctx, created.ID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 2 || txs[0].Description != "second" {
		t.Errorf("Expected newest first, got %+v", txs)
	}
}

func TestAccountRepo_SetTransactionStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Balance: 5})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	tx, err := repos.Accounts.AddTransaction(ctx, created.ID, model.Transaction{
		Amount: -1,
		Status: model.StatusPending,
	})
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	if err := repos.Accounts.SetTransactionStatus(ctx, created.ID, tx.ID, model.StatusConfirmed, ""); err != nil {
		t.Fatalf("SetTransactionStatus failed: %v", err)
	}
	txs, err := repos.Accounts.Transactions(ctx, created.ID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if txs[0].Status != model.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", txs[0].Status)
	}

	// A failed transition carries the ledger's error payload.
	if err := repos.Accounts.SetTransactionStatus(ctx, created.ID, tx.ID, model.StatusFailed, "InstructionError"); err != nil {
		t.Fatalf("SetTransactionStatus failed: %v", err)
	}
	txs, err = repos.Accounts.Transactions(ctx, created.ID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if txs[0].Status != model.StatusFailed || txs[0].Error != "InstructionError" {
		t.Errorf("Expected a failed record with the cause, got %+v", txs[0])
	}

	if err := repos.Accounts.SetTransactionStatus(ctx, created.ID, "missing", model.StatusFailed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepo_ReplaceAll_KeepsHigherLocalVersions(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Local"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created.Name = "Local v2"
	bumped, err := repos.Accounts.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// The backend snapshot lags behind the local edit.
	snapshot := []model.Account{{ID: created.ID, UserID: "u1", Name: "Remote", Version: 1}}
	if err := repos.Accounts.ReplaceAll(ctx, snapshot); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := repos.Accounts.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Version != bumped.Version {
		t.Errorf("Expected local version %d to survive, got %d", bumped.Version, got.Version)
	}
}

func TestUserRepo_CurrentAndDuplicateWallet(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	if _, err := repos.Users.Current(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound with no current user, got %v", err)
	}

	user, err := repos.Users.Create(ctx, model.User{Name: "Ada", WalletAddress: "wallet-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repos.Users.Create(ctx, model.User{Name: "Eve", WalletAddress: "wallet-1"}); !errors.Is(err, ErrDuplicateWallet) {
		t.Errorf("Expected ErrDuplicateWallet, got %v", err)
	}

	if err := repos.Users.SetCurrent(ctx, &user); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	current, err := repos.Users.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != user.ID {
		t.Errorf("Expected current user %s, got %s", user.ID, current.ID)
	}

	if err := repos.Users.SetCurrent(ctx, nil); err != nil {
		t.Fatalf("SetCurrent(nil) failed: %v", err)
	}
	if _, err := repos.Users.Current(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after sign-out, got %v", err)
	}
}

func TestGoalRepo_UpdateVersionConflict(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	created, err := repos.Goals.Create(ctx, model.SavingsGoal{
		UserID:       "u1",
		Name:         "Vacation",
		TargetAmount: 100,
		Status:       model.GoalActive,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first := created
	first.CurrentAmount = 10
	if _, err := repos.Goals.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stale := created
	stale.CurrentAmount = 20
	if _, err := repos.Goals.Update(ctx, stale); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}
}
