package session

import (
	"context"
	"testing"
	"time"

	"solbank/pkg/logging"
	"solbank/pkg/store/memory"
)

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func newTestManager(t *testing.T, config Config) (*Manager, *time.Time) {
	t.Helper()
	m := NewManager(memory.NewMemoryStore(), config, logging.NewNoOpLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })
	return m, &now
}

func TestManager_CreateAndCurrent(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	created, err := m.Create(ctx, testWallet)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := created.ExpiresAt.Sub(created.IssuedAt); got != 30*time.Minute {
		t.Errorf("Expected 30m window, got %v", got)
	}

	current, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.WalletAddress != testWallet {
		t.Errorf("Expected wallet %s, got %s", testWallet, current.WalletAddress)
	}
	if !m.IsValid(ctx) {
		t.Error("Expected fresh session to be valid")
	}
}

func TestManager_Current_NoSession(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	if _, err := m.Current(context.Background()); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
	if m.IsValid(context.Background()) {
		t.Error("Expected no session to be invalid")
	}
}

func TestManager_Expiry(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// One second before expiry the session is still valid.
	*now = now.Add(30*time.Minute - time.Second)
	if !m.IsValid(ctx) {
		t.Error("Expected session to be valid just before expiry")
	}

	// At the boundary it is not.
	*now = now.Add(time.Second)
	if m.IsValid(ctx) {
		t.Error("Expected session to be invalid at expiry")
	}
}

func TestManager_Extend(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	*now = now.Add(20 * time.Minute)
	if err := m.Extend(ctx); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	// The extension restarts the window from now.
	*now = now.Add(25 * time.Minute)
	if !m.IsValid(ctx) {
		t.Error("Expected extended session to be valid")
	}
}

func TestManager_Extend_NeverRevives(t *testing.T) {
	m, now := newTestManager(t, Config{})
	ctx := context.Background()

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	*now = now.Add(31 * time.Minute)
	if err := m.Extend(ctx); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession extending an expired session, got %v", err)
	}
	if m.IsValid(ctx) {
		t.Error("Expected expired session to stay invalid")
	}
}

func TestManager_Clear(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := m.Current(ctx); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession after Clear, got %v", err)
	}
}

func TestManager_SignatureCooldown(t *testing.T) {
	m, now := newTestManager(t, Config{SignatureCooldown: 10 * time.Second})
	ctx := context.Background()

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Creation stamps the cooldown clock.
	if m.CanRequestSignature(ctx) {
		t.Error("Expected cooldown right after creation")
	}

	*now = now.Add(11 * time.Second)
	if !m.CanRequestSignature(ctx) {
		t.Error("Expected cooldown to have elapsed")
	}

	m.RecordSignatureRequest(ctx)
	if m.CanRequestSignature(ctx) {
		t.Error("Expected cooldown right after a recorded request")
	}

	*now = now.Add(5 * time.Second)
	if m.CanRequestSignature(ctx) {
		t.Error("Expected cooldown to still be active after 5s")
	}

	*now = now.Add(6 * time.Second)
	if !m.CanRequestSignature(ctx) {
		t.Error("Expected cooldown to be over after 11s")
	}
}

func TestManager_CanRequestSignature_NoSession(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	// Without a session there is nothing to rate-limit.
	if !m.CanRequestSignature(context.Background()) {
		t.Error("Expected true with no session")
	}
}

func TestManager_BearerToken(t *testing.T) {
	m, now := newTestManager(t, Config{TokenSecret: []byte("test-secret")})
	ctx := context.Background()

	if _, err := m.BearerToken(ctx); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession without a session, got %v", err)
	}

	if _, err := m.Create(ctx, testWallet); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	token, err := m.BearerToken(ctx)
	if err != nil {
		t.Fatalf("BearerToken failed: %v", err)
	}
	if token == "" {
		t.Error("Expected a non-empty token")
	}

	*now = now.Add(time.Hour)
	if _, err := m.BearerToken(ctx); err != ErrNoSession {
		t.Errorf("Expected ErrNoSession for expired session, got %v", err)
	}
}
