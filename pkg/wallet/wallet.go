// Package wallet defines the external signing wallet capability. The wallet
// is opaque to the pipeline: it may reject any call (the user cancelled),
// and rejection is a normal outcome, not a system fault.
package wallet

import (
	"context"
	"errors"

	"solbank/pkg/ledger"
)

// ErrRejected is returned when the user declines a wallet prompt.
var ErrRejected = errors.New("wallet: request rejected by user")

// ErrNotConnected is returned when no wallet is connected.
var ErrNotConnected = errors.New("wallet: not connected")

// Signer is the capability object exposed by an external wallet.
type Signer interface {
	// PublicKey returns the connected wallet address, or "" when disconnected.
	PublicKey() string

	// SignTransaction asks the wallet to sign. May return ErrRejected.
	SignTransaction(ctx context.Context, tx *ledger.UnsignedTransaction) ([]byte, error)

	// Connect prompts for a connection. May return ErrRejected.
	Connect(ctx context.Context) error

	// Disconnect drops the connection.
	Disconnect(ctx context.Context) error
}

// IsRejected checks if the given error is a user cancellation.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
