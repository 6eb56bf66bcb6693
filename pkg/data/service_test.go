package data

import (
	"context"
	"testing"
	"time"

	"solbank/pkg/logging"
	"solbank/pkg/model"
	"solbank/pkg/remote"
	"solbank/pkg/remote/remotetest"
	"solbank/pkg/repo"
	"solbank/pkg/store/memory"
	"solbank/pkg/syncq"
)

func newTestService(t *testing.T) (*Service, *remotetest.MockClient, *repo.Repositories) {
	t.Helper()
	mock := remotetest.NewMockClient()
	s := memory.NewMemoryStore()
	repos := repo.New(s)
	queue := syncq.New(s, mock, logging.NewNoOpLogger(), nil)
	service := New(mock, repos, queue, logging.NewNoOpLogger(), nil)
	return service, mock, repos
}

func TestService_Accounts_FallsBackWhenUnreachable(t *testing.T) {
	service, mock, repos := newTestService(t)
	ctx := context.Background()

	local, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Local"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mock.SetErr(remote.ErrUnavailable)
	accounts, err := service.Accounts(ctx)
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != local.ID {
		t.Errorf("Expected the local account, got %+v", accounts)
	}
	if service.Online() {
		t.Error("Expected the service to go offline after an unreachable backend")
	}

	// Reads never enqueue anything.
	if depth := service.Queue().Len(ctx); depth != 0 {
		t.Errorf("Expected an empty queue after a failed read, got %d", depth)
	}

	// Once offline, further reads skip the backend entirely.
	calls := mock.CallCount()
	if _, err := service.Accounts(ctx); err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if mock.CallCount() != calls {
		t.Errorf("Expected no further remote calls while offline, got %d extra", mock.CallCount()-calls)
	}
}

func TestService_Accounts_AnyErrorFallsBack(t *testing.T) {
	service, mock, repos := newTestService(t)
	ctx := context.Background()

	local, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Local"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// A non-connectivity error still falls back to local data, but does not
	// flip the service offline.
	mock.SetErr(remote.ErrUnauthorized)
	accounts, err := service.Accounts(ctx)
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != local.ID {
		t.Errorf("Expected the local account, got %+v", accounts)
	}
	if !service.Online() {
		t.Error("Expected the service to stay online on a non-connectivity error")
	}
	if depth := service.Queue().Len(ctx); depth != 0 {
		t.Errorf("Expected an empty queue after a failed read, got %d", depth)
	}
}

func TestService_UpdateAccount_RejectedPushQueues(t *testing.T) {
	service, mock, repos := newTestService(t)
	ctx := context.Background()

	account, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Trading"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Even a rejected push queues the write for replay; the local copy is
	// what the caller sees.
	mock.SetErr(remote.ErrUnauthorized)
	account.Name = "Renamed"
	if _, err := service.UpdateAccount(ctx, account); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if !service.Online() {
		t.Error("Expected the service to stay online on a non-connectivity error")
	}
	pending, err := service.Queue().Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Kind != syncq.OpUpdateAccount {
		t.Errorf("Expected the update queued, got %+v", pending)
	}
}

func TestService_CreateGoal_OfflineQueues(t *testing.T) {
	service, mock, repos := newTestService(t)
	ctx := context.Background()
	service.SetOnline(ctx, false)

	goal, err := service.CreateGoal(ctx, model.SavingsGoal{
		UserID:       "u1",
		Name:         "Vacation",
		TargetAmount: 100,
		Status:       model.GoalActive,
	})
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	// The write landed locally and was queued, not sent.
	if _, err := repos.Goals.ByID(ctx, goal.ID); err != nil {
		t.Errorf("Expected the goal stored locally: %v", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("Expected no remote calls while offline, got %d", mock.CallCount())
	}
	pending, err := service.Queue().Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Kind != syncq.OpCreateGoal {
		t.Errorf("Expected one queued goal creation, got %+v", pending)
	}

	// Coming back online drains the queue.
	service.SetOnline(ctx, true)
	if depth := service.Queue().Len(ctx); depth != 0 {
		t.Errorf("Expected the queue drained on reconnect, got %d", depth)
	}
	if mock.CallCount() != 1 {
		t.Errorf("Expected the queued creation replayed once, got %d calls", mock.CallCount())
	}
}

func TestService_UpdateAccount_UnreachablePushQueues(t *testing.T) {
	service, mock, repos := newTestService(t)
	ctx := context.Background()

	account, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Name: "Trading"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mock.SetErr(remote.ErrUnavailable)
	account.Name = "Renamed"
	updated, err := service.UpdateAccount(ctx, account)
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Expected the local update applied, got %s", updated.Name)
	}
	if service.Online() {
		t.Error("Expected the failed push to flip the service offline")
	}
	pending, err := service.Queue().Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Kind != syncq.OpUpdateAccount {
		t.Errorf("Expected the update queued, got %+v", pending)
	}
}

func TestService_ContributeToGoal(t *testing.T) {
	service, _, repos := newTestService(t)
	ctx := context.Background()
	service.SetOnline(ctx, false)

	account, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Balance: 50})
	if err != nil {
		t.Fatalf("Create account failed: %v", err)
	}
	goal, err := repos.Goals.Create(ctx, model.SavingsGoal{
		UserID:       "u1",
		AccountID:    account.ID,
		Name:         "Laptop",
		TargetAmount: 30,
		Status:       model.GoalActive,
	})
	if err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}

	updated, err := service.ContributeToGoal(ctx, goal.ID, 10)
	if err != nil {
		t.Fatalf("ContributeToGoal failed: %v", err)
	}
	if updated.CurrentAmount != 10 {
		t.Errorf("Expected current amount 10, got %v", updated.CurrentAmount)
	}
	if updated.Progress < 33 || updated.Progress > 34 {
		t.Errorf("Expected progress around 33%%, got %v", updated.Progress)
	}
	if updated.Status != model.GoalActive {
		t.Errorf("Expected the goal still active, got %s", updated.Status)
	}

	// The linked account was debited with a transaction record.
	got, err := repos.Accounts.ByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Balance != 40 {
		t.Errorf("Expected balance 40, got %v", got.Balance)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Amount != -10 {
		t.Errorf("Expected a -10 debit, got %+v", got.Transactions)
	}

	// Reaching the target completes the goal.
	completed, err := service.ContributeToGoal(ctx, goal.ID, 20)
	if err != nil {
		t.Fatalf("ContributeToGoal failed: %v", err)
	}
	if completed.Status != model.GoalCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}

	// A completed goal takes no further contributions.
	if _, err := service.ContributeToGoal(ctx, goal.ID, 5); err == nil {
		t.Error("Expected contribution to a completed goal to fail")
	}
}

func TestService_ContributeToGoal_InsufficientBalance(t *testing.T) {
	service, _, repos := newTestService(t)
	ctx := context.Background()
	service.SetOnline(ctx, false)

	account, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Balance: 5})
	if err != nil {
		t.Fatalf("Create account failed: %v", err)
	}
	goal, err := repos.Goals.Create(ctx, model.SavingsGoal{
		UserID: "u1", AccountID: account.ID, TargetAmount: 100, Status: model.GoalActive,
	})
	if err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}

	if _, err := service.ContributeToGoal(ctx, goal.ID, 10); err == nil {
		t.Error("Expected an underfunded contribution to fail")
	}
	got, err := repos.Accounts.ByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if got.Balance != 5 {
		t.Errorf("Expected the balance untouched, got %v", got.Balance)
	}
}

func TestService_RunAutoSave(t *testing.T) {
	service, _, repos := newTestService(t)
	ctx := context.Background()
	service.SetOnline(ctx, false)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.SetClock(func() time.Time { return now })

	account, err := repos.Accounts.Create(ctx, model.Account{UserID: "u1", Balance: 100})
	if err != nil {
		t.Fatalf("Create account failed: %v", err)
	}
	due, err := repos.Goals.Create(ctx, model.SavingsGoal{
		UserID: "u1", AccountID: account.ID, Name: "Due", TargetAmount: 1000, Status: model.GoalActive,
		AutoSave: &model.AutoSaveRule{Amount: 25, Frequency: model.AutoSaveWeekly, NextRun: now.AddDate(0, 0, -1)},
	})
	if err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}
	notDue, err := repos.Goals.Create(ctx, model.SavingsGoal{
		UserID: "u1", AccountID: account.ID, Name: "Later", TargetAmount: 1000, Status: model.GoalActive,
		AutoSave: &model.AutoSaveRule{Amount: 25, Frequency: model.AutoSaveWeekly, NextRun: now.AddDate(0, 0, 3)},
	})
	if err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}

	fired, err := service.RunAutoSave(ctx)
	if err != nil {
		t.Fatalf("RunAutoSave failed: %v", err)
	}
	if fired != 1 {
		t.Errorf("Expected 1 contribution, got %d", fired)
	}

	refreshed, err := repos.Goals.ByID(ctx, due.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if refreshed.CurrentAmount != 25 {
		t.Errorf("Expected 25 contributed, got %v", refreshed.CurrentAmount)
	}
	if !refreshed.AutoSave.NextRun.After(now) {
		t.Errorf("Expected the next run pushed past now, got %v", refreshed.AutoSave.NextRun)
	}

	untouched, err := repos.Goals.ByID(ctx, notDue.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if untouched.CurrentAmount != 0 {
		t.Errorf("Expected the future rule untouched, got %v", untouched.CurrentAmount)
	}
}

func TestService_SignInSignOut(t *testing.T) {
	service, _, repos := newTestService(t)
	ctx := context.Background()

	user, err := service.SignIn(ctx, "wallet-1", "Ada")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	current, err := repos.Users.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != user.ID {
		t.Errorf("Expected %s current, got %s", user.ID, current.ID)
	}

	// A second sign-in with the same wallet reuses the user.
	again, err := service.SignIn(ctx, "wallet-1", "Ada")
	if err != nil {
		t.Fatalf("Second SignIn failed: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("Expected the same user, got %s", again.ID)
	}

	if err := service.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, err := repos.Users.Current(ctx); err == nil {
		t.Error("Expected no current user after sign-out")
	}
}
