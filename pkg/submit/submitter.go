// Package submit drives the transfer pipeline: validate, build, sign through
// the external wallet, send, and wait for confirmation under a deadline.
//
// Submission is not idempotent. A confirmation timeout means the outcome is
// unknown, never that the transfer failed; such transfers are recorded with a
// timeout status and handed to the Reconciler, which keeps polling the ledger
// until the signature lands or is demonstrably gone.
//
// Transfers for the same source account are serialized. Two concurrent
// submissions would otherwise race on the balance check and both pass it.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solbank/pkg/ledger"
	"solbank/pkg/logging"
	"solbank/pkg/metrics"
	"solbank/pkg/model"
	"solbank/pkg/wallet"
)

var (
	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("submit: amount must be positive")

	// ErrInvalidAddress is returned when the recipient does not parse.
	ErrInvalidAddress = errors.New("submit: invalid recipient address")

	// ErrInsufficientFunds is returned when the source balance cannot cover
	// the transfer.
	ErrInsufficientFunds = errors.New("submit: insufficient funds")

	// ErrSignatureCooldown is returned when the session gate declines a new
	// signature prompt.
	ErrSignatureCooldown = errors.New("submit: signature request cooldown active")
)

// TransferRequest describes a native transfer.
type TransferRequest struct {
	// AccountID is the local account the transaction is recorded against.
	AccountID string

	// To is the recipient address.
	To string

	// Amount is in SOL.
	Amount float64

	Description string
}

// TokenTransferRequest describes an SPL-style token transfer.
type TokenTransferRequest struct {
	AccountID string
	To        string
	Mint      string

	// Amount is in the token's raw base units.
	Amount uint64

	Description string
}

// Result is the outcome of a submission attempt. Signature is set as soon as
// the network accepted the transaction, even when Status is timeout.
type Result struct {
	TransactionID string
	Signature     string
	Status        model.TransactionStatus
	Fee           float64
	BlockTime     int64

	// Error carries the stringified ledger error when Status is failed.
	Error string
}

// Recorder persists transaction records locally. *repo.AccountRepo
// satisfies it.
type Recorder interface {
	AddTransaction(ctx context.Context, accountID string, tx model.Transaction) (model.Transaction, error)
	SetTransactionStatus(ctx context.Context, accountID, txID string, status model.TransactionStatus, cause string) error
	Transactions(ctx context.Context, accountID string) ([]model.Transaction, error)
}

// SignatureGate rations wallet signature prompts. *session.Manager
// satisfies it.
type SignatureGate interface {
	CanRequestSignature(ctx context.Context) bool
	RecordSignatureRequest(ctx context.Context)
}

// Submitter owns the transfer pipeline for one wallet connection.
type Submitter struct {
	client     ledger.Client
	signer     wallet.Signer
	recorder   Recorder
	gate       SignatureGate
	reconciler *Reconciler
	options    Options
	logger     *logging.Logger
	collector  metrics.Collector
	clock      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Submitter. gate may be nil, in which case signature prompts
// are not rationed.
func New(client ledger.Client, signer wallet.Signer, recorder Recorder, gate SignatureGate, options Options, logger *logging.Logger, collector metrics.Collector) *Submitter {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &Submitter{
		client:    client,
		signer:    signer,
		recorder:  recorder,
		gate:      gate,
		options:   options.withDefaults(),
		logger:    logger.Named("submit"),
		collector: collector,
		clock:     time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
	s.reconciler = NewReconciler(client, recorder, s.options.Commitment, logger)
	return s
}

// SetClock overrides the time source. Tests only.
func (s *Submitter) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Reconciler exposes the timeout reconciler, mainly so callers can sweep
// stale records on startup.
func (s *Submitter) Reconciler() *Reconciler {
	return s.reconciler
}

// accountLock serializes submissions per source account.
func (s *Submitter) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// SendTransfer validates, signs, submits, and confirms a native transfer.
// A user rejection in the wallet yields a rejected Result and a nil error;
// it is a normal outcome of the flow, not a fault.
func (s *Submitter) SendTransfer(ctx context.Context, req TransferRequest) (Result, error) {
	from := s.signer.PublicKey()
	if from == "" {
		return Result{}, wallet.ErrNotConnected
	}
	if req.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	lock := s.accountLock(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	lamports := uint64(req.Amount * ledger.LamportsPerSol)
	balance, err := s.client.GetBalance(ctx, from, s.options.Commitment)
	if err != nil {
		return Result{}, fmt.Errorf("submit: read balance: %w", err)
	}
	if balance < lamports {
		return Result{}, fmt.Errorf("%w: have %d lamports, need %d", ErrInsufficientFunds, balance, lamports)
	}

	instructions := s.computeBudget()
	instructions = append(instructions, ledger.NewTransferInstruction(from, to, lamports))

	record := model.Transaction{
		AccountID:    req.AccountID,
		Amount:       -req.Amount,
		Kind:         model.TxTransfer,
		Counterparty: to,
		Description:  req.Description,
	}
	return s.submit(ctx, req.AccountID, from, instructions, record)
}

// SendTokenTransfer submits a token transfer between the associated token
// accounts of the sender and recipient. When the recipient's token account
// does not exist yet, its creation is prepended to the same transaction.
func (s *Submitter) SendTokenTransfer(ctx context.Context, req TokenTransferRequest) (Result, error) {
	from := s.signer.PublicKey()
	if from == "" {
		return Result{}, wallet.ErrNotConnected
	}
	if req.Amount == 0 {
		return Result{}, ErrInvalidAmount
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	mint, err := ledger.ParseAddress(req.Mint)
	if err != nil {
		return Result{}, fmt.Errorf("submit: invalid mint: %w", err)
	}

	lock := s.accountLock(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	source, err := ledger.AssociatedTokenAddress(from, mint)
	if err != nil {
		return Result{}, fmt.Errorf("submit: derive source token account: %w", err)
	}
	destination, err := ledger.AssociatedTokenAddress(to, mint)
	if err != nil {
		return Result{}, fmt.Errorf("submit: derive destination token account: %w", err)
	}

	instructions := s.computeBudget()
	if _, err := s.client.GetAccountInfo(ctx, destination); err != nil {
		if !ledger.IsNotFound(err) {
			return Result{}, fmt.Errorf("submit: check destination token account: %w", err)
		}
		instructions = append(instructions, ledger.NewCreateTokenAccountInstruction(from, destination, to, mint))
	}
	instructions = append(instructions, ledger.NewTokenTransferInstruction(source, destination, from, req.Amount))

	record := model.Transaction{
		AccountID:    req.AccountID,
		Amount:       -float64(req.Amount),
		Kind:         model.TxTokenTransfer,
		Counterparty: to,
		Description:  req.Description,
	}
	return s.submit(ctx, req.AccountID, from, instructions, record)
}

func (s *Submitter) computeBudget() []ledger.Instruction {
	instructions := []ledger.Instruction{
		ledger.NewComputeUnitLimitInstruction(s.options.ComputeUnits),
	}
	if s.options.PriorityFee > 0 {
		instructions = append(instructions, ledger.NewComputeUnitPriceInstruction(s.options.PriorityFee))
	}
	return instructions
}

// submit runs the shared sign/send/confirm tail of both transfer flows.
func (s *Submitter) submit(ctx context.Context, accountID, feePayer string, instructions []ledger.Instruction, record model.Transaction) (Result, error) {
	started := s.clock()

	if s.gate != nil && !s.gate.CanRequestSignature(ctx) {
		return Result{}, ErrSignatureCooldown
	}

	bh, err := s.client.GetLatestBlockhash(ctx, s.options.Commitment)
	if err != nil {
		return Result{}, fmt.Errorf("submit: fetch blockhash: %w", err)
	}
	tx := &ledger.UnsignedTransaction{
		FeePayer:     feePayer,
		Blockhash:    bh,
		Instructions: instructions,
		CreatedAt:    started,
	}

	if s.gate != nil {
		s.gate.RecordSignatureRequest(ctx)
	}
	raw, err := s.signer.SignTransaction(ctx, tx)
	if err != nil {
		if wallet.IsRejected(err) {
			s.logger.Info("transfer rejected in wallet", zap.String("account", accountID))
			s.collector.RecordTransfer(string(model.StatusRejected), s.clock().Sub(started))
			return Result{Status: model.StatusRejected}, nil
		}
		return Result{}, fmt.Errorf("submit: sign: %w", err)
	}

	// Signing through an external wallet can take arbitrarily long. A stale
	// transaction would be dropped by the node anyway; surface it early.
	if age := s.clock().Sub(tx.CreatedAt); age > s.options.MaxSignedAge {
		s.logger.Warn("signed transaction too old, not submitting", zap.Duration("age", age))
		return Result{}, fmt.Errorf("submit: signed transaction aged %s, rebuild required", age)
	}

	signature, err := s.client.SendRawTransaction(ctx, raw, ledger.SendOptions{
		SkipPreflight:       s.options.SkipPreflight,
		PreflightCommitment: s.options.PreflightCommitment,
		MaxRetries:          s.options.MaxRetries,
	})
	if err != nil {
		return Result{}, fmt.Errorf("submit: send: %w", err)
	}

	record.Timestamp = started
	record.Status = model.StatusPending
	record.Signature = signature
	saved, err := s.recorder.AddTransaction(ctx, accountID, record)
	if err != nil {
		// The transfer is in flight regardless; keep going so the caller at
		// least learns the signature.
		s.logger.Error("record pending transaction", zap.String("signature", signature), zap.Error(err))
	}

	result := Result{TransactionID: saved.ID, Signature: signature}
	result.Status, result.Error = s.confirm(ctx, signature, bh)
	if saved.ID != "" && result.Status != model.StatusPending {
		if err := s.recorder.SetTransactionStatus(ctx, accountID, saved.ID, result.Status, result.Error); err != nil {
			s.logger.Error("update transaction status", zap.String("id", saved.ID), zap.Error(err))
		}
	}

	switch result.Status {
	case model.StatusConfirmed:
		if detail, err := s.client.GetTransaction(ctx, signature, s.options.Commitment); err == nil {
			result.Fee = float64(detail.Fee) / ledger.LamportsPerSol
			result.BlockTime = detail.BlockTime
		}
		s.logger.Info("transfer confirmed",
			zap.String("account", accountID),
			zap.String("signature", signature),
			zap.Duration("elapsed", s.clock().Sub(started)))
	case model.StatusTimeout:
		s.logger.Warn("transfer confirmation timed out, outcome unknown",
			zap.String("account", accountID),
			zap.String("signature", signature))
		if saved.ID != "" {
			s.reconciler.Watch(accountID, saved.ID, signature)
		}
	case model.StatusFailed:
		s.logger.Warn("transfer failed on ledger",
			zap.String("account", accountID),
			zap.String("signature", signature),
			zap.String("cause", result.Error))
	}
	s.collector.RecordTransfer(string(result.Status), s.clock().Sub(started))
	return result, nil
}

// confirm races the confirmation wait against the configured timeout.
// Timeout maps to StatusTimeout, never StatusFailed: the transaction may
// still land. A failed outcome carries the stringified ledger error.
func (s *Submitter) confirm(ctx context.Context, signature string, bh ledger.Blockhash) (model.TransactionStatus, string) {
	confirmCtx, cancel := context.WithTimeout(ctx, s.options.ConfirmTimeout)
	defer cancel()

	confirmation, err := s.client.ConfirmTransaction(confirmCtx, signature, bh, s.options.Commitment)
	switch {
	case err == nil && confirmation.Err == "":
		return model.StatusConfirmed, ""
	case err == nil:
		return model.StatusFailed, confirmation.Err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(confirmCtx.Err(), context.DeadlineExceeded):
		return model.StatusTimeout, ""
	default:
		s.logger.Warn("confirmation errored", zap.String("signature", signature), zap.Error(err))
		return model.StatusTimeout, ""
	}
}
