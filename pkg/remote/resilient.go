package remote

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"solbank/pkg/logging"
	"solbank/pkg/metrics"
	"solbank/pkg/model"
)

// ResilientClient wraps a Client with circuit breaker and timeout
// protection. When the breaker is open every call fails fast with
// ErrUnavailable, which the data service treats like any other remote
// failure: fall back locally and queue writes.
type ResilientClient struct {
	client  Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// ResilientConfig configures the resilient wrapper.
type ResilientConfig struct {
	// Timeout bounds each remote call.
	Timeout time.Duration

	// MaxRequests allowed through in half-open state.
	MaxRequests uint32

	// Interval is the closed-state count reset period.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// ConsecutiveFailures trips the breaker when reached.
	ConsecutiveFailures uint32
}

// DefaultResilientConfig returns sensible defaults.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:             10 * time.Second,
		MaxRequests:         3,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewResilientClient wraps the given client with a circuit breaker.
func NewResilientClient(client Client, config ResilientConfig, collector metrics.Collector, logger *logging.Logger) *ResilientClient {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.Global()
	}
	log := logger.Named("remote")

	rc := &ResilientClient{
		client:  client,
		timeout: config.Timeout,
		metrics: collector,
		logger:  log,
	}

	rc.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-api",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			default:
				state = metrics.CircuitClosed
			}
			collector.RecordCircuitState(name, state)
		},
	})

	return rc
}

// exec runs one call through the breaker with timeout and metrics.
func exec[T any](ctx context.Context, rc *ResilientClient, resource string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	result, err := rc.cb.Execute(func() (any, error) {
		return fn(ctx)
	})

	duration := time.Since(start)
	rc.metrics.RecordRemoteCall(resource, err == nil, duration)

	var zero T
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rc.logger.Warn("circuit breaker rejected call", zap.String("resource", resource))
			return zero, ErrUnavailable
		}
		if ctx.Err() == context.DeadlineExceeded {
			rc.logger.Warn("remote call timeout",
				zap.String("resource", resource),
				zap.Duration("timeout", rc.timeout),
			)
			return zero, ErrUnavailable
		}
		return zero, err
	}
	return result.(T), nil
}

func (rc *ResilientClient) GetAccounts(ctx context.Context) ([]model.Account, error) {
	return exec(ctx, rc, "accounts", func(ctx context.Context) ([]model.Account, error) {
		return rc.client.GetAccounts(ctx)
	})
}

func (rc *ResilientClient) GetAccount(ctx context.Context, id string) (model.Account, error) {
	return exec(ctx, rc, "accounts", func(ctx context.Context) (model.Account, error) {
		return rc.client.GetAccount(ctx, id)
	})
}

func (rc *ResilientClient) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	return exec(ctx, rc, "accounts", func(ctx context.Context) (model.Account, error) {
		return rc.client.CreateAccount(ctx, account)
	})
}

func (rc *ResilientClient) UpdateAccount(ctx context.Context, id string, account model.Account) (model.Account, error) {
	return exec(ctx, rc, "accounts", func(ctx context.Context) (model.Account, error) {
		return rc.client.UpdateAccount(ctx, id, account)
	})
}

func (rc *ResilientClient) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	return exec(ctx, rc, "transactions", func(ctx context.Context) ([]model.Transaction, error) {
		return rc.client.GetTransactions(ctx, accountID)
	})
}

func (rc *ResilientClient) CreateTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error) {
	return exec(ctx, rc, "transactions", func(ctx context.Context) (model.Transaction, error) {
		return rc.client.CreateTransaction(ctx, accountID, tx)
	})
}

func (rc *ResilientClient) GetGoals(ctx context.Context) ([]model.SavingsGoal, error) {
	return exec(ctx, rc, "savings-goals", func(ctx context.Context) ([]model.SavingsGoal, error) {
		return rc.client.GetGoals(ctx)
	})
}

func (rc *ResilientClient) CreateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	return exec(ctx, rc, "savings-goals", func(ctx context.Context) (model.SavingsGoal, error) {
		return rc.client.CreateGoal(ctx, goal)
	})
}

func (rc *ResilientClient) UpdateGoal(ctx context.Context, id string, goal model.SavingsGoal) (model.SavingsGoal, error) {
	return exec(ctx, rc, "savings-goals", func(ctx context.Context) (model.SavingsGoal, error) {
		return rc.client.UpdateGoal(ctx, id, goal)
	})
}

func (rc *ResilientClient) DeleteGoal(ctx context.Context, id string) error {
	_, err := exec(ctx, rc, "savings-goals", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, rc.client.DeleteGoal(ctx, id)
	})
	return err
}

func (rc *ResilientClient) GetCurrentUser(ctx context.Context) (model.User, error) {
	return exec(ctx, rc, "users", func(ctx context.Context) (model.User, error) {
		return rc.client.GetCurrentUser(ctx)
	})
}

func (rc *ResilientClient) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	return exec(ctx, rc, "users", func(ctx context.Context) (model.User, error) {
		return rc.client.UpdateUser(ctx, user)
	})
}

func (rc *ResilientClient) Ping(ctx context.Context) error {
	_, err := exec(ctx, rc, "health", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, rc.client.Ping(ctx)
	})
	return err
}
