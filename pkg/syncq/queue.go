// Package syncq persists writes made while the backend API is
// unreachable and replays them once connectivity returns.
//
// Operations are tagged variants (see OpKind) stored as a single JSON
// list in the local store. Draining is single-flight: concurrent
// callers share one pass over the queue. An operation that keeps
// failing is retried up to the ceiling and then moved to a dead-letter
// list for inspection instead of being dropped.
package syncq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"go.uber.org/zap"

	"solbank/pkg/logging"
	"solbank/pkg/metrics"
	"solbank/pkg/model"
	"solbank/pkg/remote"
	"solbank/pkg/store"
)

// MaxRetries is how many failed drain passes an operation survives; the
// next failure after that moves it to the dead-letter list.
const MaxRetries = 3

// DrainResult summarizes one pass over the queue.
type DrainResult struct {
	Synced     int
	Retained   int
	DeadLetter int
}

// Queue is the offline sync queue. All mutations go through the store
// so the queue survives restarts.
type Queue struct {
	store     store.Store
	remote    remote.Client
	logger    *logging.Logger
	collector metrics.Collector

	mu    sync.Mutex
	group singleflight.Group
	clock func() time.Time
}

// New creates a queue backed by s, replaying against client.
func New(s store.Store, client remote.Client, logger *logging.Logger, collector metrics.Collector) *Queue {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Queue{
		store:     s,
		remote:    client,
		logger:    logger.Named("syncq"),
		collector: collector,
		clock:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (q *Queue) SetClock(clock func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clock = clock
}

func (q *Queue) now() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clock()
}

// EnqueueCreateAccount queues an account creation.
func (q *Queue) EnqueueCreateAccount(ctx context.Context, account model.Account) {
	q.enqueue(ctx, OpCreateAccount, accountPayload{Account: account})
}

// EnqueueUpdateAccount queues an account update.
func (q *Queue) EnqueueUpdateAccount(ctx context.Context, accountID string, account model.Account) {
	q.enqueue(ctx, OpUpdateAccount, accountPayload{AccountID: accountID, Account: account})
}

// EnqueueCreateTransaction queues a transaction record.
func (q *Queue) EnqueueCreateTransaction(ctx context.Context, accountID string, tx model.Transaction) {
	q.enqueue(ctx, OpCreateTransaction, transactionPayload{AccountID: accountID, Transaction: tx})
}

// EnqueueCreateGoal queues a savings goal creation.
func (q *Queue) EnqueueCreateGoal(ctx context.Context, goal model.SavingsGoal) {
	q.enqueue(ctx, OpCreateGoal, goalPayload{Goal: goal})
}

// EnqueueUpdateGoal queues a savings goal update.
func (q *Queue) EnqueueUpdateGoal(ctx context.Context, goalID string, goal model.SavingsGoal) {
	q.enqueue(ctx, OpUpdateGoal, goalPayload{GoalID: goalID, Goal: goal})
}

// EnqueueDeleteGoal queues a savings goal deletion.
func (q *Queue) EnqueueDeleteGoal(ctx context.Context, goalID string) {
	q.enqueue(ctx, OpDeleteGoal, deleteGoalPayload{GoalID: goalID})
}

// EnqueueUpdateUser queues a profile update.
func (q *Queue) EnqueueUpdateUser(ctx context.Context, user model.User) {
	q.enqueue(ctx, OpUpdateUser, userPayload{User: user})
}

// enqueue is best effort: a failure to persist is logged, never
// surfaced, so going offline cannot break the write path that already
// succeeded locally.
func (q *Queue) enqueue(ctx context.Context, kind OpKind, payload any) {
	raw, err := encodePayload(payload)
	if err != nil {
		q.logger.Error("drop unencodable operation", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	op := Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   raw,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.load(ctx, store.KeyQueue)
	if err != nil {
		q.logger.Error("load queue", zap.Error(err))
		ops = nil
	}
	ops = append(ops, op)
	if err := q.save(ctx, store.KeyQueue, ops); err != nil {
		q.logger.Error("persist queue", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	q.collector.RecordEnqueue(string(kind))
	q.collector.RecordQueueDepth(len(ops))
	q.logger.Debug("operation queued",
		zap.String("id", op.ID),
		zap.String("kind", string(kind)),
		zap.Int("depth", len(ops)))
}

// Pending returns the queued operations in timestamp order.
func (q *Queue) Pending(ctx context.Context) ([]Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.load(ctx, store.KeyQueue)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(ops)
	return ops, nil
}

// Len returns the number of queued operations.
func (q *Queue) Len(ctx context.Context) int {
	ops, err := q.Pending(ctx)
	if err != nil {
		return 0
	}
	return len(ops)
}

// DeadLetter returns operations that exhausted their retries.
func (q *Queue) DeadLetter(ctx context.Context) ([]Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, store.KeyDeadLetter)
}

// Drain replays queued operations against the backend in the order
// they were created. Concurrent drains collapse into one pass.
// Operations that fail are kept for a later pass until they hit the
// retry ceiling, at which point they move to the dead-letter list.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	v, err, _ := q.group.Do("drain", func() (any, error) {
		return q.drain(ctx)
	})
	if err != nil {
		return DrainResult{}, err
	}
	return v.(DrainResult), nil
}

func (q *Queue) drain(ctx context.Context) (DrainResult, error) {
	q.mu.Lock()
	ops, err := q.load(ctx, store.KeyQueue)
	q.mu.Unlock()
	if err != nil {
		return DrainResult{}, err
	}
	if len(ops) == 0 {
		return DrainResult{}, nil
	}
	sortByCreatedAt(ops)

	var result DrainResult
	var retained, dead []Operation
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			// Keep whatever we did not get to.
			retained = append(retained, op)
			result.Retained++
			continue
		}
		if err := q.dispatch(ctx, op); err != nil {
			op.LastError = err.Error()
			if op.RetryCount >= MaxRetries {
				q.logger.Warn("operation dead-lettered",
					zap.String("id", op.ID),
					zap.String("kind", string(op.Kind)),
					zap.Int("retries", op.RetryCount),
					zap.Error(err))
				dead = append(dead, op)
				result.DeadLetter++
				q.collector.RecordDrain(metrics.DrainDeadLetter)
			} else {
				op.RetryCount++
				q.logger.Info("operation retained for retry",
					zap.String("id", op.ID),
					zap.String("kind", string(op.Kind)),
					zap.Int("retries", op.RetryCount),
					zap.Error(err))
				retained = append(retained, op)
				result.Retained++
				q.collector.RecordDrain(metrics.DrainRetried)
			}
			continue
		}
		result.Synced++
		q.collector.RecordDrain(metrics.DrainSynced)
	}

	processed := make(map[string]bool, len(ops))
	for _, op := range ops {
		processed[op.ID] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	// Reload before saving: enqueue may have appended operations while the
	// dispatch loop ran without the lock, and those must not be clobbered.
	current, err := q.load(ctx, store.KeyQueue)
	if err != nil {
		q.logger.Error("reload queue", zap.Error(err))
		current = nil
	}
	for _, op := range current {
		if !processed[op.ID] {
			retained = append(retained, op)
		}
	}
	if err := q.save(ctx, store.KeyQueue, retained); err != nil {
		return result, fmt.Errorf("syncq: persist retained operations: %w", err)
	}
	if len(dead) > 0 {
		existing, err := q.load(ctx, store.KeyDeadLetter)
		if err != nil {
			q.logger.Error("load dead-letter list", zap.Error(err))
			existing = nil
		}
		if err := q.save(ctx, store.KeyDeadLetter, append(existing, dead...)); err != nil {
			return result, fmt.Errorf("syncq: persist dead-letter list: %w", err)
		}
	}
	q.collector.RecordQueueDepth(len(retained))
	q.logger.Info("drain complete",
		zap.Int("synced", result.Synced),
		zap.Int("retained", result.Retained),
		zap.Int("deadLetter", result.DeadLetter))
	return result, nil
}

// dispatch replays one operation. The switch is exhaustive over OpKind;
// an unknown kind is a permanent failure.
func (q *Queue) dispatch(ctx context.Context, op Operation) error {
	switch op.Kind {
	case OpCreateAccount:
		p, err := decodePayload[accountPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.CreateAccount(ctx, p.Account)
		return err
	case OpUpdateAccount:
		p, err := decodePayload[accountPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.UpdateAccount(ctx, p.AccountID, p.Account)
		return err
	case OpCreateTransaction:
		p, err := decodePayload[transactionPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.CreateTransaction(ctx, p.AccountID, p.Transaction)
		return err
	case OpCreateGoal:
		p, err := decodePayload[goalPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.CreateGoal(ctx, p.Goal)
		return err
	case OpUpdateGoal:
		p, err := decodePayload[goalPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.UpdateGoal(ctx, p.GoalID, p.Goal)
		return err
	case OpDeleteGoal:
		p, err := decodePayload[deleteGoalPayload](op)
		if err != nil {
			return err
		}
		err = q.remote.DeleteGoal(ctx, p.GoalID)
		if errors.Is(err, remote.ErrNotFound) {
			// Already gone remotely, nothing left to replay.
			return nil
		}
		return err
	case OpUpdateUser:
		p, err := decodePayload[userPayload](op)
		if err != nil {
			return err
		}
		_, err = q.remote.UpdateUser(ctx, p.User)
		return err
	default:
		return fmt.Errorf("syncq: unknown operation kind %q", op.Kind)
	}
}

func (q *Queue) load(ctx context.Context, key string) ([]Operation, error) {
	var ops []Operation
	if err := store.GetJSON(ctx, q.store, key, &ops); err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ops, nil
}

func (q *Queue) save(ctx context.Context, key string, ops []Operation) error {
	if ops == nil {
		ops = []Operation{}
	}
	return store.SetJSON(ctx, q.store, key, ops)
}

func sortByCreatedAt(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})
}
