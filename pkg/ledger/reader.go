package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"solbank/pkg/logging"
)

// Confidence qualifies a balance result. The reader degrades to zero on
// remote failure, so callers must distinguish confirmed-zero from
// unknown-zero before acting on it.
type Confidence int

const (
	// ConfidenceUnknown means the remote call failed; zero is a placeholder.
	ConfidenceUnknown Confidence = iota
	// ConfidenceConfirmed means the remote answered; zero is a real balance.
	ConfidenceConfirmed
)

// Reader reads balances and activity from the remote ledger with a fixed
// inter-request delay as a client-side rate limiter, and single-flights
// concurrent reads for the same key.
type Reader struct {
	client Client
	delay  time.Duration
	logger *logging.Logger
	sf     singleflight.Group

	mu       sync.Mutex
	nextCall time.Time
}

// ReaderConfig holds configuration for the reader.
type ReaderConfig struct {
	// Delay is the fixed gap enforced before each remote call.
	Delay time.Duration
}

// DefaultReaderConfig returns the stock 100ms inter-request delay.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{Delay: 100 * time.Millisecond}
}

// NewReader creates a rate-limited reader over the given client.
func NewReader(client Client, config ReaderConfig, logger *logging.Logger) *Reader {
	if config.Delay <= 0 {
		config.Delay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Reader{
		client: client,
		delay:  config.Delay,
		logger: logger.Named("reader"),
	}
}

// throttle blocks until the inter-request delay has elapsed or ctx is done.
func (r *Reader) throttle(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	wait := r.nextCall.Sub(now)
	if wait < 0 {
		wait = 0
	}
	r.nextCall = now.Add(wait + r.delay)
	r.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Balance returns the native balance in SOL when tokenMint is empty, or the
// balance of the associated token account for (address, tokenMint). A missing
// token account is a confirmed zero. Remote failures are logged and degrade
// to an unknown zero.
func (r *Reader) Balance(ctx context.Context, address, tokenMint string) (float64, Confidence) {
	key := fmt.Sprintf("balance:%s:%s", address, tokenMint)
	type result struct {
		amount     float64
		confidence Confidence
	}

	v, _, _ := r.sf.Do(key, func() (any, error) {
		amount, confidence := r.readBalance(ctx, address, tokenMint)
		return result{amount, confidence}, nil
	})

	res := v.(result)
	return res.amount, res.confidence
}

func (r *Reader) readBalance(ctx context.Context, address, tokenMint string) (float64, Confidence) {
	if err := r.throttle(ctx); err != nil {
		return 0, ConfidenceUnknown
	}

	if tokenMint == "" {
		lamports, err := r.client.GetBalance(ctx, address, CommitmentConfirmed)
		if err != nil {
			r.logger.Warn("balance read failed",
				zap.String("address", address),
				zap.Error(err),
			)
			return 0, ConfidenceUnknown
		}
		return float64(lamports) / LamportsPerSol, ConfidenceConfirmed
	}

	tokenAccount, err := AssociatedTokenAddress(address, tokenMint)
	if err != nil {
		r.logger.Warn("token account derivation failed",
			zap.String("address", address),
			zap.String("mint", tokenMint),
			zap.Error(err),
		)
		return 0, ConfidenceUnknown
	}

	amount, err := r.client.GetTokenAccountBalance(ctx, tokenAccount, CommitmentConfirmed)
	if IsNotFound(err) {
		// No token account means no holdings. Not an error.
		return 0, ConfidenceConfirmed
	}
	if err != nil {
		r.logger.Warn("token balance read failed",
			zap.String("token_account", tokenAccount),
			zap.Error(err),
		)
		return 0, ConfidenceUnknown
	}
	return amount, ConfidenceConfirmed
}

// RecentSignatures lists recent activity for an address, newest first.
func (r *Reader) RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	return r.client.GetSignaturesForAddress(ctx, address, limit)
}

// TransactionDetail fetches the detail view for a landed signature.
func (r *Reader) TransactionDetail(ctx context.Context, signature string) (*TransactionDetail, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	return r.client.GetTransaction(ctx, signature, CommitmentConfirmed)
}
