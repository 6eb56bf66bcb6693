package model

import (
	"time"
)

// AccountKind identifies the product type of an account.
type AccountKind string

const (
	AccountTrading    AccountKind = "trading"
	AccountHodl       AccountKind = "hodl"
	AccountSavings    AccountKind = "savings"
	AccountChecking   AccountKind = "checking"
	AccountInvestment AccountKind = "investment"
	AccountStaking    AccountKind = "staking"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

// Account is a bank-style account owned by exactly one user.
// Balance is a signed decimal in SOL; it should equal the sum of the signed
// amounts of Transactions at any consistent snapshot.
type Account struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Kind         AccountKind     `json:"kind"`
	Balance      float64         `json:"balance"`
	Status       AccountStatus   `json:"status"`
	Transactions []Transaction   `json:"transactions"` // most-recent-first
	OpenedAt     time.Time       `json:"opened_at"`
	LastActivity time.Time       `json:"last_activity"`
	Version      int64           `json:"version"`
}

// TransactionKind identifies what produced a transaction.
type TransactionKind string

const (
	TxTransfer      TransactionKind = "transfer"
	TxTokenTransfer TransactionKind = "token_transfer"
	TxSwap          TransactionKind = "swap"
	TxStake         TransactionKind = "stake"
	TxUnstake       TransactionKind = "unstake"
	TxDeposit       TransactionKind = "deposit"
	TxWithdrawal    TransactionKind = "withdrawal"
	TxPayment       TransactionKind = "payment"
	TxFee           TransactionKind = "fee"
	TxInterest      TransactionKind = "interest"
	TxCustom        TransactionKind = "custom"
)

// TransactionStatus is the outcome state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFinalized TransactionStatus = "finalized"
	StatusFailed    TransactionStatus = "failed"
	StatusTimeout   TransactionStatus = "timeout"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is an immutable ledger entry. Amount is signed: negative means
// outgoing. Only Status, and the Error payload that comes with a failed
// status, may change after the record is written (pending -> confirmed/failed).
type Transaction struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Timestamp    time.Time         `json:"timestamp"`
	Amount       float64           `json:"amount"`
	Kind         TransactionKind   `json:"kind"`
	Status       TransactionStatus `json:"status"`
	Signature    string            `json:"signature,omitempty"`
	Counterparty string            `json:"counterparty,omitempty"`
	Description  string            `json:"description,omitempty"`
	Fee          float64           `json:"fee,omitempty"`
	BlockTime    int64             `json:"block_time,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// User is the owner of accounts and goals, identified by a wallet address.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}

// AutoSaveFrequency is how often an auto-save rule fires.
type AutoSaveFrequency string

const (
	AutoSaveWeekly  AutoSaveFrequency = "weekly"
	AutoSaveMonthly AutoSaveFrequency = "monthly"
)

// AutoSaveRule schedules recurring contributions into a savings goal.
type AutoSaveRule struct {
	Amount    float64           `json:"amount"`
	Frequency AutoSaveFrequency `json:"frequency"`
	NextRun   time.Time         `json:"next_run"`
}

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// SavingsGoal tracks progress toward a target amount, funded from a linked
// account. Progress is a percentage in [0, 100+).
type SavingsGoal struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	AccountID     string        `json:"account_id"`
	Name          string        `json:"name"`
	Category      string        `json:"category,omitempty"`
	TargetAmount  float64       `json:"target_amount"`
	CurrentAmount float64       `json:"current_amount"`
	Progress      float64       `json:"progress"`
	TargetDate    time.Time     `json:"target_date"`
	AutoSave      *AutoSaveRule `json:"auto_save,omitempty"`
	Status        GoalStatus    `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	Version       int64         `json:"version"`
}

// Card is a read-only card listing carried over from the account dashboard.
type Card struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AccountID  string    `json:"account_id"`
	Last4      string    `json:"last4"`
	Network    string    `json:"network"`
	ExpiryDate string    `json:"expiry_date"`
	Frozen     bool      `json:"frozen"`
	CreatedAt  time.Time `json:"created_at"`
}

// SumAmounts returns the sum of signed transaction amounts. Used to check the
// balance invariant against an account snapshot.
func SumAmounts(txs []Transaction) float64 {
	var sum float64
	for _, tx := range txs {
		sum += tx.Amount
	}
	return sum
}

// IsTerminal reports whether a transaction status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusFinalized, StatusFailed, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
