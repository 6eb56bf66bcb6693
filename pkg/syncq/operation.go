package syncq

import (
	"encoding/json"
	"fmt"
	"time"

	"solbank/pkg/model"
)

// OpKind tags the variant of a queued operation. The payload layout of
// an Operation depends entirely on its kind.
type OpKind string

const (
	OpCreateAccount     OpKind = "create_account"
	OpUpdateAccount     OpKind = "update_account"
	OpCreateTransaction OpKind = "create_transaction"
	OpCreateGoal        OpKind = "create_goal"
	OpUpdateGoal        OpKind = "update_goal"
	OpDeleteGoal        OpKind = "delete_goal"
	OpUpdateUser        OpKind = "update_user"
)

// Operation is a pending write captured while the backend was
// unreachable. Payload is decoded according to Kind at drain time.
type Operation struct {
	ID         string          `json:"id"`
	Kind       OpKind          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
	RetryCount int             `json:"retryCount"`
	LastError  string          `json:"lastError,omitempty"`
}

type accountPayload struct {
	AccountID string        `json:"accountId,omitempty"`
	Account   model.Account `json:"account"`
}

type transactionPayload struct {
	AccountID   string            `json:"accountId"`
	Transaction model.Transaction `json:"transaction"`
}

type goalPayload struct {
	GoalID string            `json:"goalId,omitempty"`
	Goal   model.SavingsGoal `json:"goal"`
}

type deleteGoalPayload struct {
	GoalID string `json:"goalId"`
}

type userPayload struct {
	User model.User `json:"user"`
}

func encodePayload(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("syncq: encode payload: %w", err)
	}
	return raw, nil
}

func decodePayload[T any](op Operation) (T, error) {
	var v T
	if err := json.Unmarshal(op.Payload, &v); err != nil {
		return v, fmt.Errorf("syncq: decode %s payload: %w", op.Kind, err)
	}
	return v, nil
}
