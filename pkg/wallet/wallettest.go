package wallet

import (
	"context"
	"sync/atomic"

	"solbank/pkg/ledger"
)

// FakeSigner is a wallet stand-in for tests. Zero value is a disconnected
// wallet; set Address to connect. Set Reject to make every prompt fail like
// a user cancellation.
type FakeSigner struct {
	Address string
	Reject  bool

	// SignFunc overrides the default signing behavior when set.
	SignFunc func(ctx context.Context, tx *ledger.UnsignedTransaction) ([]byte, error)

	signCalls int64
}

// PublicKey returns the configured address.
func (f *FakeSigner) PublicKey() string {
	return f.Address
}

// SignTransaction returns the serialized message as the "signed" bytes, or
// ErrRejected when Reject is set.
func (f *FakeSigner) SignTransaction(ctx context.Context, tx *ledger.UnsignedTransaction) ([]byte, error) {
	atomic.AddInt64(&f.signCalls, 1)
	if f.SignFunc != nil {
		return f.SignFunc(ctx, tx)
	}
	if f.Reject {
		return nil, ErrRejected
	}
	if f.Address == "" {
		return nil, ErrNotConnected
	}
	return append([]byte("signed:"), tx.Message()...), nil
}

// Connect succeeds unless Reject is set.
func (f *FakeSigner) Connect(ctx context.Context) error {
	if f.Reject {
		return ErrRejected
	}
	return nil
}

// Disconnect clears the address.
func (f *FakeSigner) Disconnect(ctx context.Context) error {
	f.Address = ""
	return nil
}

// SignCalls returns the number of signing prompts shown.
func (f *FakeSigner) SignCalls() int {
	return int(atomic.LoadInt64(&f.signCalls))
}
