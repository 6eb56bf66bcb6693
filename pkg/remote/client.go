package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solbank/pkg/model"
)

// Common remote API errors.
var (
	// ErrUnavailable is returned when the backend cannot be reached or the
	// circuit breaker is open.
	ErrUnavailable = errors.New("remote: backend unavailable")

	// ErrUnauthorized is returned on authentication failures.
	ErrUnauthorized = errors.New("remote: unauthorized")

	// ErrNotFound is returned when a resource does not exist remotely.
	ErrNotFound = errors.New("remote: not found")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: api error %d: %s", e.Status, e.Message)
}

// TokenProvider supplies the bearer token for the Authorization header.
// session.Manager satisfies this.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// Client is the backend REST API surface the pipeline uses. Resource paths:
// /accounts, /accounts/{id}, /accounts/{id}/transactions, /savings-goals,
// /savings-goals/{id}, /users/me.
type Client interface {
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id string) (model.Account, error)
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)
	UpdateAccount(ctx context.Context, id string, account model.Account) (model.Account, error)

	GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
	CreateTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error)

	GetGoals(ctx context.Context) ([]model.SavingsGoal, error)
	CreateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error)
	UpdateGoal(ctx context.Context, id string, goal model.SavingsGoal) (model.SavingsGoal, error)
	DeleteGoal(ctx context.Context, id string) error

	GetCurrentUser(ctx context.Context) (model.User, error)
	UpdateUser(ctx context.Context, user model.User) (model.User, error)

	// Ping probes backend reachability for the connectivity watcher.
	Ping(ctx context.Context) error
}

// HTTPClient is the net/http implementation of Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

// HTTPConfig holds configuration for the HTTP client.
type HTTPConfig struct {
	BaseURL string
	// RequestTimeout bounds each round trip.
	RequestTimeout time.Duration
}

// NewHTTPClient creates a REST client for the backend. tokens may be nil for
// unauthenticated deployments.
func NewHTTPClient(config HTTPConfig, tokens TokenProvider) *HTTPClient {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: config.BaseURL,
		http:    &http.Client{Timeout: config.RequestTimeout},
		tokens:  tokens,
	}
}

// do performs one request, decoding a JSON response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.BearerToken(ctx)
		if err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Status: resp.StatusCode, Message: string(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *HTTPClient) GetAccounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	err := c.do(ctx, http.MethodGet, "/accounts", nil, &out)
	return out, err
}

func (c *HTTPClient) GetAccount(ctx context.Context, id string) (model.Account, error) {
	var out model.Account
	err := c.do(ctx, http.MethodGet, "/accounts/"+id, nil, &out)
	return out, err
}

func (c *HTTPClient) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	var out model.Account
	err := c.do(ctx, http.MethodPost, "/accounts", account, &out)
	return out, err
}

func (c *HTTPClient) UpdateAccount(ctx context.Context, id string, account model.Account) (model.Account, error) {
	var out model.Account
	err := c.do(ctx, http.MethodPatch, "/accounts/"+id, account, &out)
	return out, err
}

func (c *HTTPClient) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	var out []model.Transaction
	err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/transactions", nil, &out)
	return out, err
}

func (c *HTTPClient) CreateTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error) {
	var out model.Transaction
	err := c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/transactions", tx, &out)
	return out, err
}

func (c *HTTPClient) GetGoals(ctx context.Context) ([]model.SavingsGoal, error) {
	var out []model.SavingsGoal
	err := c.do(ctx, http.MethodGet, "/savings-goals", nil, &out)
	return out, err
}

func (c *HTTPClient) CreateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	var out model.SavingsGoal
	err := c.do(ctx, http.MethodPost, "/savings-goals", goal, &out)
	return out, err
}

func (c *HTTPClient) UpdateGoal(ctx context.Context, id string, goal model.SavingsGoal) (model.SavingsGoal, error) {
	var out model.SavingsGoal
	err := c.do(ctx, http.MethodPatch, "/savings-goals/"+id, goal, &out)
	return out, err
}

func (c *HTTPClient) DeleteGoal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/savings-goals/"+id, nil, nil)
}

func (c *HTTPClient) GetCurrentUser(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &out)
	return out, err
}

func (c *HTTPClient) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPatch, "/users/me", user, &out)
	return out, err
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// IsUnavailable checks if the given error indicates an unreachable backend.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
