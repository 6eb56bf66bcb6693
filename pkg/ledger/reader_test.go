package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"solbank/pkg/ledger"
	"solbank/pkg/ledger/ledgertest"
	"solbank/pkg/logging"
)

const (
	testAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testMint    = "So11111111111111111111111111111111111111112"
)

func newTestReader(mock *ledgertest.MockClient, delay time.Duration) *ledger.Reader {
	return ledger.NewReader(mock, ledger.ReaderConfig{Delay: delay}, logging.NewNoOpLogger())
}

func TestReader_Balance_Native(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = func(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error) {
		return 2_500_000_000, nil
	}
	r := newTestReader(mock, time.Millisecond)

	balance, confidence := r.Balance(context.Background(), testAddress, "")
	if balance != 2.5 {
		t.Errorf("Expected 2.5 SOL, got %v", balance)
	}
	if confidence != ledger.ConfidenceConfirmed {
		t.Errorf("Expected confirmed, got %v", confidence)
	}
}

func TestReader_Balance_DegradesToUnknownZero(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = func(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error) {
		return 0, errors.New("rpc unreachable")
	}
	r := newTestReader(mock, time.Millisecond)

	balance, confidence := r.Balance(context.Background(), testAddress, "")
	if balance != 0 {
		t.Errorf("Expected zero, got %v", balance)
	}
	// A degraded zero is flagged so callers do not present it as a real
	// balance.
	if confidence != ledger.ConfidenceUnknown {
		t.Errorf("Expected unknown confidence, got %v", confidence)
	}
}

func TestReader_Balance_MissingTokenAccountIsConfirmedZero(t *testing.T) {
	mock := ledgertest.NewMockClient()
	// Default mock returns ErrNotFound for token balances.
	r := newTestReader(mock, time.Millisecond)

	balance, confidence := r.Balance(context.Background(), testAddress, testMint)
	if balance != 0 {
		t.Errorf("Expected zero, got %v", balance)
	}
	if confidence != ledger.ConfidenceConfirmed {
		t.Errorf("Expected confirmed zero for a missing token account, got %v", confidence)
	}
}

func TestReader_Balance_TokenAccount(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetTokenAccountBalanceFunc = func(ctx context.Context, address string, commitment ledger.Commitment) (float64, error) {
		return 12.75, nil
	}
	r := newTestReader(mock, time.Millisecond)

	balance, confidence := r.Balance(context.Background(), testAddress, testMint)
	if balance != 12.75 {
		t.Errorf("Expected 12.75, got %v", balance)
	}
	if confidence != ledger.ConfidenceConfirmed {
		t.Errorf("Expected confirmed, got %v", confidence)
	}
	if mock.BalanceCalls() != 0 {
		t.Errorf("Expected the native balance endpoint untouched, got %d calls", mock.BalanceCalls())
	}
}

func TestReader_Throttle(t *testing.T) {
	mock := ledgertest.NewMockClient()
	delay := 30 * time.Millisecond
	r := newTestReader(mock, delay)
	ctx := context.Background()

	start := time.Now()
	if _, err := r.RecentSignatures(ctx, testAddress, 5); err != nil {
		t.Fatalf("RecentSignatures failed: %v", err)
	}
	if _, err := r.RecentSignatures(ctx, testAddress, 5); err != nil {
		t.Fatalf("RecentSignatures failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("Expected the second call delayed by at least %v, took %v", delay, elapsed)
	}
}

func TestReader_Throttle_ContextCancelled(t *testing.T) {
	mock := ledgertest.NewMockClient()
	r := newTestReader(mock, time.Second)

	if _, err := r.RecentSignatures(context.Background(), testAddress, 5); err != nil {
		t.Fatalf("RecentSignatures failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RecentSignatures(ctx, testAddress, 5); err == nil {
		t.Error("Expected a cancelled context to abort the throttled call")
	}
	if mock.SignaturesCalls() != 1 {
		t.Errorf("Expected only the first call to reach the client, got %d", mock.SignaturesCalls())
	}
}
