package ledger

import (
	"context"
	"errors"
)

// Commitment is the confirmation depth requested from the remote ledger.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Blockhash is the freshness token attached to a transaction before signing.
// A transaction expires once the chain height passes LastValidBlockHeight.
type Blockhash struct {
	Hash                 string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SendOptions control transaction submission.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	MaxRetries          int
}

// Confirmation is the outcome reported for a submitted signature. A non-empty
// Err is the stringified ledger-level error payload.
type Confirmation struct {
	Err string
}

// SignatureInfo is one entry from a signatures-for-address listing.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime int64  `json:"blockTime"`
	Err       string `json:"err,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// TransactionDetail is the best-effort detail view of a landed transaction.
type TransactionDetail struct {
	Signature string
	Slot      uint64
	BlockTime int64
	// Fee is in lamports.
	Fee uint64
	Err string
}

// AccountInfo is the minimal account view the pipeline needs: existence and
// lamport balance.
type AccountInfo struct {
	Lamports uint64
	Owner    string
}

// ErrNotFound is returned when a signature, transaction, or account does not
// exist on the remote ledger.
var ErrNotFound = errors.New("ledger: not found")

// Client is the remote ledger collaborator. Implementations speak JSON-RPC to
// a configurable endpoint; the pipeline treats the wire format as opaque.
type Client interface {
	// GetBalance returns the native balance of an address in lamports.
	GetBalance(ctx context.Context, address string, commitment Commitment) (uint64, error)

	// GetLatestBlockhash fetches the freshness token for a new transaction.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, error)

	// SendRawTransaction submits a signed transaction and returns its signature.
	SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (string, error)

	// ConfirmTransaction blocks until the signature reaches the commitment
	// level, the blockhash expires, or ctx is done.
	ConfirmTransaction(ctx context.Context, signature string, bh Blockhash, commitment Commitment) (Confirmation, error)

	// GetSignaturesForAddress lists recent signatures touching the address,
	// newest first.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)

	// GetTransaction fetches detail for a landed signature, or ErrNotFound.
	GetTransaction(ctx context.Context, signature string, commitment Commitment) (*TransactionDetail, error)

	// GetTokenAccountBalance returns the UI-unit balance of a token account,
	// or ErrNotFound if the account does not exist.
	GetTokenAccountBalance(ctx context.Context, address string, commitment Commitment) (float64, error)

	// GetAccountInfo returns account existence info, or ErrNotFound.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// Close releases any underlying resources.
	Close() error
}

// IsNotFound checks if the given error indicates a missing remote entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
