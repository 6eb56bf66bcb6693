// Package remotetest provides a mock backend API client for tests.
package remotetest

import (
	"context"
	"sync"

	"solbank/pkg/model"
)

// MockClient is a mock implementation of remote.Client. When Err is set,
// every call fails with it; otherwise calls succeed and echo their input.
// Each call is appended to Calls as "METHOD path" for ordering assertions.
type MockClient struct {
	mu     sync.Mutex
	Err    error
	Calls  []string
	onCall func(call string)

	// CreatedTransactions collects transactions accepted by the mock,
	// keyed by account id.
	CreatedTransactions map[string][]model.Transaction
}

// NewMockClient creates a mock that accepts everything.
func NewMockClient() *MockClient {
	return &MockClient{CreatedTransactions: make(map[string][]model.Transaction)}
}

// SetErr switches the failure mode; nil restores success.
func (m *MockClient) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// SetOnCall installs a hook invoked after each call is recorded, outside
// the mock's lock. Lets tests interleave work with an in-flight caller.
func (m *MockClient) SetOnCall(hook func(call string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCall = hook
}

// CallLog returns a copy of the recorded calls.
func (m *MockClient) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// CallCount returns the number of recorded calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockClient) record(call string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	err := m.Err
	hook := m.onCall
	m.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return err
}

func (m *MockClient) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := m.record("GET /accounts"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *MockClient) GetAccount(ctx context.Context, id string) (model.Account, error) {
	if err := m.record("GET /accounts/" + id); err != nil {
		return model.Account{}, err
	}
	return model.Account{ID: id}, nil
}

func (m *MockClient) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	if err := m.record("POST /accounts"); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

func (m *MockClient) UpdateAccount(ctx context.Context, id string, account model.Account) (model.Account, error) {
	if err := m.record("PATCH /accounts/" + id); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

func (m *MockClient) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if err := m.record("GET /accounts/" + accountID + "/transactions"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *MockClient) CreateTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, "POST /accounts/"+accountID+"/transactions")
	err := m.Err
	if err == nil {
		m.CreatedTransactions[accountID] = append(m.CreatedTransactions[accountID], tx)
	}
	hook := m.onCall
	m.mu.Unlock()
	if hook != nil {
		hook("POST /accounts/" + accountID + "/transactions")
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

func (m *MockClient) GetGoals(ctx context.Context) ([]model.SavingsGoal, error) {
	if err := m.record("GET /savings-goals"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *MockClient) CreateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	if err := m.record("POST /savings-goals"); err != nil {
		return model.SavingsGoal{}, err
	}
	return goal, nil
}

func (m *MockClient) UpdateGoal(ctx context.Context, id string, goal model.SavingsGoal) (model.SavingsGoal, error) {
	if err := m.record("PATCH /savings-goals/" + id); err != nil {
		return model.SavingsGoal{}, err
	}
	return goal, nil
}

func (m *MockClient) DeleteGoal(ctx context.Context, id string) error {
	return m.record("DELETE /savings-goals/" + id)
}

func (m *MockClient) GetCurrentUser(ctx context.Context) (model.User, error) {
	if err := m.record("GET /users/me"); err != nil {
		return model.User{}, err
	}
	return model.User{}, nil
}

func (m *MockClient) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	if err := m.record("PATCH /users/me"); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.record("GET /health")
}
