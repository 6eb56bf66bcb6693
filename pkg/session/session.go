package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"solbank/pkg/logging"
	"solbank/pkg/store"
)

// Session is a signed wallet-authentication grant with a fixed validity
// window. LastSignatureRequest gates the cooldown between wallet signature
// prompts so concurrent UI triggers cannot stack prompts.
type Session struct {
	WalletAddress        string    `json:"wallet_address"`
	IssuedAt             time.Time `json:"issued_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	LastSignatureRequest time.Time `json:"last_signature_request"`
}

// Config holds session manager configuration.
type Config struct {
	// Window is the session validity period from issue or extension.
	Window time.Duration
	// SignatureCooldown is the minimum gap between signature prompts.
	SignatureCooldown time.Duration
	// TokenSecret signs bearer tokens derived from the session.
	TokenSecret []byte
}

// DefaultConfig returns the stock 30-minute window with a 10-second
// signature cooldown.
func DefaultConfig() Config {
	return Config{
		Window:            30 * time.Minute,
		SignatureCooldown: 10 * time.Second,
	}
}

// ErrNoSession is returned when an operation needs an active session.
var ErrNoSession = errors.New("session: no active session")

// Manager tracks the wallet session. All operations are local and
// synchronous; a corrupt persisted session reads as "no session" so the
// caller fails safe into re-authentication.
type Manager struct {
	store  store.Store
	config Config
	now    func() time.Time
	logger *logging.Logger
	mu     sync.Mutex
}

// NewManager creates a session manager persisting through the given store.
func NewManager(s store.Store, config Config, logger *logging.Logger) *Manager {
	if config.Window <= 0 {
		config.Window = 30 * time.Minute
	}
	if config.SignatureCooldown <= 0 {
		config.SignatureCooldown = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Manager{
		store:  s,
		config: config,
		now:    time.Now,
		logger: logger.Named("session"),
	}
}

// SetClock injects a clock for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Create issues a fresh session for the wallet address, starting now.
func (m *Manager) Create(ctx context.Context, address string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := Session{
		WalletAddress:        address,
		IssuedAt:             now,
		ExpiresAt:            now.Add(m.config.Window),
		LastSignatureRequest: now,
	}

	if err := store.SetJSON(ctx, m.store, store.KeySession, session); err != nil {
		return Session{}, err
	}

	m.logger.Info("session created",
		zap.String("wallet", address),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// Current returns the stored session. A missing or corrupt session returns
// ErrNoSession.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked(ctx)
}

func (m *Manager) currentLocked(ctx context.Context) (Session, error) {
	var session Session
	if err := store.GetJSON(ctx, m.store, store.KeySession, &session); err != nil {
		// Corrupt data fails safe to re-authentication.
		return Session{}, ErrNoSession
	}
	if session.WalletAddress == "" {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// IsValid reports whether a session exists and has not expired.
func (m *Manager) IsValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil {
		return false
	}
	return m.now().Before(session.ExpiresAt)
}

// Extend pushes the expiry to now + window. It fails on an expired or absent
// session and never revives one.
func (m *Manager) Extend(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	if !now.Before(session.ExpiresAt) {
		return ErrNoSession
	}

	session.ExpiresAt = now.Add(m.config.Window)
	return store.SetJSON(ctx, m.store, store.KeySession, session)
}

// Clear deletes the session unconditionally.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(ctx, store.KeySession)
}

// CanRequestSignature reports whether the cooldown since the last signature
// prompt has elapsed. With no session or no recorded request it is true.
func (m *Manager) CanRequestSignature(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil || session.LastSignatureRequest.IsZero() {
		return true
	}
	return m.now().Sub(session.LastSignatureRequest) > m.config.SignatureCooldown
}

// RecordSignatureRequest stamps the cooldown clock. A missing session is a
// no-op.
func (m *Manager) RecordSignatureRequest(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil {
		return
	}
	session.LastSignatureRequest = m.now()
	if err := store.SetJSON(ctx, m.store, store.KeySession, session); err != nil {
		m.logger.Warn("failed to record signature request", zap.Error(err))
	}
}

// BearerToken derives a signed JWT from the active session for the remote
// API's Authorization header. The token expires with the session.
func (m *Manager) BearerToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentLocked(ctx)
	if err != nil {
		return "", err
	}
	if !m.now().Before(session.ExpiresAt) {
		return "", ErrNoSession
	}
	if len(m.config.TokenSecret) == 0 {
		return "", errors.New("session: no token secret configured")
	}

	claims := jwt.RegisteredClaims{
		Subject:   session.WalletAddress,
		IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.TokenSecret)
}
