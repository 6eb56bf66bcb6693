package submit

import (
	"time"

	"solbank/pkg/ledger"
)

// Options control how a transfer is built, submitted, and confirmed.
// The zero value is not useful; start from DefaultOptions.
type Options struct {
	// Commitment is the confirmation depth waited for after submission.
	Commitment ledger.Commitment

	// MaxRetries is forwarded to the remote node's internal resend loop.
	MaxRetries int

	// SkipPreflight disables the node-side simulation before acceptance.
	SkipPreflight bool

	// PreflightCommitment is the depth used by the preflight simulation.
	PreflightCommitment ledger.Commitment

	// PriorityFee, in micro-lamports per compute unit, is attached as a
	// compute budget directive when non-zero.
	PriorityFee uint64

	// ComputeUnits caps the compute budget requested for the transaction.
	ComputeUnits uint32

	// ConfirmTimeout bounds the wait for confirmation. Expiry does not mean
	// the transfer failed, only that its outcome is unknown.
	ConfirmTimeout time.Duration

	// MaxSignedAge is the advisory ceiling on how stale a transaction may be
	// between build and submission before it is rebuilt.
	MaxSignedAge time.Duration
}

// DefaultOptions returns the stock submission parameters.
func DefaultOptions() Options {
	return Options{
		Commitment:          ledger.CommitmentConfirmed,
		MaxRetries:          3,
		SkipPreflight:       false,
		PreflightCommitment: ledger.CommitmentProcessed,
		PriorityFee:         0,
		ComputeUnits:        200_000,
		ConfirmTimeout:      30 * time.Second,
		MaxSignedAge:        90 * time.Second,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.Commitment == "" {
		o.Commitment = defaults.Commitment
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaults.MaxRetries
	}
	if o.PreflightCommitment == "" {
		o.PreflightCommitment = defaults.PreflightCommitment
	}
	if o.ComputeUnits == 0 {
		o.ComputeUnits = defaults.ComputeUnits
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = defaults.ConfirmTimeout
	}
	if o.MaxSignedAge <= 0 {
		o.MaxSignedAge = defaults.MaxSignedAge
	}
	return o
}
