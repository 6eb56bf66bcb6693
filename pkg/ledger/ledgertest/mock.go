// Package ledgertest provides a mock ledger client for tests. It allows
// injecting custom behavior per method and tracks call counts.
package ledgertest

import (
	"context"
	"sync/atomic"

	"solbank/pkg/ledger"
)

// MockClient is a mock implementation of ledger.Client.
type MockClient struct {
	// Function hooks - set these to customize behavior
	GetBalanceFunc              func(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error)
	GetLatestBlockhashFunc      func(ctx context.Context, commitment ledger.Commitment) (ledger.Blockhash, error)
	SendRawTransactionFunc      func(ctx context.Context, raw []byte, opts ledger.SendOptions) (string, error)
	ConfirmTransactionFunc      func(ctx context.Context, signature string, bh ledger.Blockhash, commitment ledger.Commitment) (ledger.Confirmation, error)
	GetSignaturesForAddressFunc func(ctx context.Context, address string, limit int) ([]ledger.SignatureInfo, error)
	GetTransactionFunc          func(ctx context.Context, signature string, commitment ledger.Commitment) (*ledger.TransactionDetail, error)
	GetTokenAccountBalanceFunc  func(ctx context.Context, address string, commitment ledger.Commitment) (float64, error)
	GetAccountInfoFunc          func(ctx context.Context, address string) (*ledger.AccountInfo, error)

	// Call tracking (atomic)
	balanceCalls    int64
	blockhashCalls  int64
	sendCalls       int64
	confirmCalls    int64
	signaturesCalls int64
	detailCalls     int64
	tokenCalls      int64
	infoCalls       int64
}

// NewMockClient creates a mock whose reads succeed with zero values and whose
// writes succeed with placeholder signatures.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetBalance(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error) {
	atomic.AddInt64(&m.balanceCalls, 1)
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, address, commitment)
	}
	return 0, nil
}

func (m *MockClient) GetLatestBlockhash(ctx context.Context, commitment ledger.Commitment) (ledger.Blockhash, error) {
	atomic.AddInt64(&m.blockhashCalls, 1)
	if m.GetLatestBlockhashFunc != nil {
		return m.GetLatestBlockhashFunc(ctx, commitment)
	}
	return ledger.Blockhash{Hash: "MockBlockhash1111111111111111111111111111111", LastValidBlockHeight: 1000}, nil
}

func (m *MockClient) SendRawTransaction(ctx context.Context, raw []byte, opts ledger.SendOptions) (string, error) {
	atomic.AddInt64(&m.sendCalls, 1)
	if m.SendRawTransactionFunc != nil {
		return m.SendRawTransactionFunc(ctx, raw, opts)
	}
	return "MockSignature111111111111111111111111111111", nil
}

func (m *MockClient) ConfirmTransaction(ctx context.Context, signature string, bh ledger.Blockhash, commitment ledger.Commitment) (ledger.Confirmation, error) {
	atomic.AddInt64(&m.confirmCalls, 1)
	if m.ConfirmTransactionFunc != nil {
		return m.ConfirmTransactionFunc(ctx, signature, bh, commitment)
	}
	return ledger.Confirmation{}, nil
}

func (m *MockClient) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]ledger.SignatureInfo, error) {
	atomic.AddInt64(&m.signaturesCalls, 1)
	if m.GetSignaturesForAddressFunc != nil {
		return m.GetSignaturesForAddressFunc(ctx, address, limit)
	}
	return nil, nil
}

func (m *MockClient) GetTransaction(ctx context.Context, signature string, commitment ledger.Commitment) (*ledger.TransactionDetail, error) {
	atomic.AddInt64(&m.detailCalls, 1)
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, signature, commitment)
	}
	return nil, ledger.ErrNotFound
}

func (m *MockClient) GetTokenAccountBalance(ctx context.Context, address string, commitment ledger.Commitment) (float64, error) {
	atomic.AddInt64(&m.tokenCalls, 1)
	if m.GetTokenAccountBalanceFunc != nil {
		return m.GetTokenAccountBalanceFunc(ctx, address, commitment)
	}
	return 0, ledger.ErrNotFound
}

func (m *MockClient) GetAccountInfo(ctx context.Context, address string) (*ledger.AccountInfo, error) {
	atomic.AddInt64(&m.infoCalls, 1)
	if m.GetAccountInfoFunc != nil {
		return m.GetAccountInfoFunc(ctx, address)
	}
	return nil, ledger.ErrNotFound
}

func (m *MockClient) Close() error { return nil }

// BalanceCalls returns the number of GetBalance calls.
func (m *MockClient) BalanceCalls() int { return int(atomic.LoadInt64(&m.balanceCalls)) }

// BlockhashCalls returns the number of GetLatestBlockhash calls.
func (m *MockClient) BlockhashCalls() int { return int(atomic.LoadInt64(&m.blockhashCalls)) }

// SendCalls returns the number of SendRawTransaction calls.
func (m *MockClient) SendCalls() int { return int(atomic.LoadInt64(&m.sendCalls)) }

// ConfirmCalls returns the number of ConfirmTransaction calls.
func (m *MockClient) ConfirmCalls() int { return int(atomic.LoadInt64(&m.confirmCalls)) }

// SignaturesCalls returns the number of GetSignaturesForAddress calls.
func (m *MockClient) SignaturesCalls() int { return int(atomic.LoadInt64(&m.signaturesCalls)) }

// DetailCalls returns the number of GetTransaction calls.
func (m *MockClient) DetailCalls() int { return int(atomic.LoadInt64(&m.detailCalls)) }

// TotalCalls returns the number of calls across every method.
func (m *MockClient) TotalCalls() int {
	return int(atomic.LoadInt64(&m.balanceCalls) +
		atomic.LoadInt64(&m.blockhashCalls) +
		atomic.LoadInt64(&m.sendCalls) +
		atomic.LoadInt64(&m.confirmCalls) +
		atomic.LoadInt64(&m.signaturesCalls) +
		atomic.LoadInt64(&m.detailCalls) +
		atomic.LoadInt64(&m.tokenCalls) +
		atomic.LoadInt64(&m.infoCalls))
}
