package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"solbank/pkg/ledger"
	"solbank/pkg/ledger/ledgertest"
	"solbank/pkg/logging"
	"solbank/pkg/model"
	"solbank/pkg/repo"
	"solbank/pkg/store/memory"
	"solbank/pkg/wallet"
)

const (
	testSender    = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testRecipient = "11111111111111111111111111111111"
	testMint      = "So11111111111111111111111111111111111111112"
)

func newTestSubmitter(t *testing.T, mock *ledgertest.MockClient, signer *wallet.FakeSigner) (*Submitter, *repo.Repositories, string) {
	t.Helper()
	repos := repo.New(memory.NewMemoryStore())
	account, err := repos.Accounts.Create(context.Background(), model.Account{
		UserID:  "u1",
		Name:    "Trading",
		Balance: 10,
	})
	if err != nil {
		t.Fatalf("Create account failed: %v", err)
	}

	opts := DefaultOptions()
	opts.ConfirmTimeout = 200 * time.Millisecond
	s := New(mock, signer, repos.Accounts, nil, opts, logging.NewNoOpLogger(), nil)
	s.Reconciler().SetPollInterval(10*time.Millisecond, 5)
	return s, repos, account.ID
}

func solBalance(sol float64) func(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error) {
	return func(ctx context.Context, address string, commitment ledger.Commitment) (uint64, error) {
		return uint64(sol * ledger.LamportsPerSol), nil
	}
}

func TestSubmitter_SendTransfer_Validation(t *testing.T) {
	mock := ledgertest.NewMockClient()
	signer := &wallet.FakeSigner{Address: testSender}
	s, _, accountID := newTestSubmitter(t, mock, signer)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     TransferRequest
		wantErr error
	}{
		{"zero amount", TransferRequest{AccountID: accountID, To: testRecipient, Amount: 0}, ErrInvalidAmount},
		{"negative amount", TransferRequest{AccountID: accountID, To: testRecipient, Amount: -1}, ErrInvalidAmount},
		{"bad address", TransferRequest{AccountID: accountID, To: "not-an-address", Amount: 1}, ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.SendTransfer(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Validation failures never reach the network or the wallet.
	if mock.TotalCalls() != 0 {
		t.Errorf("Expected no remote calls, got %d", mock.TotalCalls())
	}
	if signer.SignCalls() != 0 {
		t.Errorf("Expected no signing prompts, got %d", signer.SignCalls())
	}
}

func TestSubmitter_SendTransfer_NotConnected(t *testing.T) {
	mock := ledgertest.NewMockClient()
	s, _, accountID := newTestSubmitter(t, mock, &wallet.FakeSigner{})

	_, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 1})
	if !errors.Is(err, wallet.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if mock.TotalCalls() != 0 {
		t.Errorf("Expected no remote calls, got %d", mock.TotalCalls())
	}
}

func TestSubmitter_SendTransfer_InsufficientFunds(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	signer := &wallet.FakeSigner{Address: testSender}
	s, repos, accountID := newTestSubmitter(t, mock, signer)

	_, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 15})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if mock.SendCalls() != 0 {
		t.Errorf("Expected no submission, got %d sends", mock.SendCalls())
	}
	if signer.SignCalls() != 0 {
		t.Errorf("Expected no signing prompt, got %d", signer.SignCalls())
	}

	// Nothing was recorded locally.
	txs, err := repos.Accounts.Transactions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("Expected no local records, got %d", len(txs))
	}
}

func TestSubmitter_SendTransfer_FullBalance(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	signer := &wallet.FakeSigner{Address: testSender}
	s, _, accountID := newTestSubmitter(t, mock, signer)

	// A transfer of the entire balance passes the funds check; the network
	// fee is the validator's problem, not a local rejection.
	result, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 10})
	if err != nil {
		t.Fatalf("SendTransfer failed: %v", err)
	}
	if result.Status != model.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", result.Status)
	}
	if mock.SendCalls() != 1 {
		t.Errorf("Expected one send, got %d", mock.SendCalls())
	}
}

func TestSubmitter_SendTransfer_Confirmed(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	signer := &wallet.FakeSigner{Address: testSender}
	s, repos, accountID := newTestSubmitter(t, mock, signer)
	ctx := context.Background()

	result, err := s.SendTransfer(ctx, TransferRequest{
		AccountID:   accountID,
		To:          testRecipient,
		Amount:      4,
		Description: "rent",
	})
	if err != nil {
		t.Fatalf("SendTransfer failed: %v", err)
	}
	if result.Status != model.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", result.Status)
	}
	if result.Signature == "" {
		t.Error("Expected a signature")
	}
	if mock.SendCalls() != 1 || mock.ConfirmCalls() != 1 {
		t.Errorf("Expected one send and one confirm, got %d/%d", mock.SendCalls(), mock.ConfirmCalls())
	}

	// The local record carries the debit and the final status.
	account, err := repos.Accounts.ByID(ctx, accountID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	if account.Balance != 6 {
		t.Errorf("Expected balance 6, got %v", account.Balance)
	}
	if len(account.Transactions) != 1 {
		t.Fatalf("Expected one transaction, got %d", len(account.Transactions))
	}
	tx := account.Transactions[0]
	if tx.Amount != -4 || tx.Status != model.StatusConfirmed || tx.Signature != result.Signature {
		t.Errorf("Unexpected record: %+v", tx)
	}
	if tx.Kind != model.TxTransfer {
		t.Errorf("Expected transfer kind, got %s", tx.Kind)
	}
}

func TestSubmitter_SendTransfer_Rejected(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	signer := &wallet.FakeSigner{Address: testSender, Reject: true}
	s, repos, accountID := newTestSubmitter(t, mock, signer)

	result, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 1})
	if err != nil {
		t.Fatalf("Expected rejection to be a soft outcome, got error %v", err)
	}
	if result.Status != model.StatusRejected {
		t.Errorf("Expected rejected, got %s", result.Status)
	}
	if mock.SendCalls() != 0 {
		t.Errorf("Expected nothing submitted, got %d sends", mock.SendCalls())
	}

	// Rejection leaves no trace in the ledger history.
	txs, err := repos.Accounts.Transactions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("Expected no local records, got %d", len(txs))
	}
}

func TestSubmitter_SendTransfer_FailedOnLedger(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	mock.ConfirmTransactionFunc = func(ctx context.Context, signature string, bh ledger.Blockhash, commitment ledger.Commitment) (ledger.Confirmation, error) {
		return ledger.Confirmation{Err: "InstructionError"}, nil
	}
	signer := &wallet.FakeSigner{Address: testSender}
	s, repos, accountID := newTestSubmitter(t, mock, signer)

	result, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 1})
	if err != nil {
		t.Fatalf("SendTransfer failed: %v", err)
	}
	if result.Status != model.StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if result.Error != "InstructionError" {
		t.Errorf("Expected the ledger error carried, got %q", result.Error)
	}

	txs, err := repos.Accounts.Transactions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Status != model.StatusFailed || txs[0].Error != "InstructionError" {
		t.Errorf("Expected a failed record with the cause, got %+v", txs)
	}
}

func TestSubmitter_SendTransfer_TimeoutThenReconciled(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	mock.ConfirmTransactionFunc = func(ctx context.Context, signature string, bh ledger.Blockhash, commitment ledger.Commitment) (ledger.Confirmation, error) {
		<-ctx.Done()
		return ledger.Confirmation{}, ctx.Err()
	}
	mock.GetTransactionFunc = func(ctx context.Context, signature string, commitment ledger.Commitment) (*ledger.TransactionDetail, error) {
		return &ledger.TransactionDetail{Signature: signature, Fee: 5000}, nil
	}
	signer := &wallet.FakeSigner{Address: testSender}
	s, repos, accountID := newTestSubmitter(t, mock, signer)

	result, err := s.SendTransfer(context.Background(), TransferRequest{AccountID: accountID, To: testRecipient, Amount: 1})
	if err != nil {
		t.Fatalf("SendTransfer failed: %v", err)
	}
	// Timeout means unknown, not failed.
	if result.Status != model.StatusTimeout {
		t.Fatalf("Expected timeout, got %s", result.Status)
	}

	// The background reconciler finds the landed signature and corrects the
	// record.
	s.Reconciler().Wait()
	txs, err := repos.Accounts.Transactions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Status != model.StatusConfirmed {
		t.Errorf("Expected the record reconciled to confirmed, got %+v", txs)
	}
}

func TestSubmitter_SendTransfer_CooldownGate(t *testing.T) {
	mock := ledgertest.NewMockClient()
	mock.GetBalanceFunc = solBalance(10)
	signer := &wallet.FakeSigner{Address: testSender}
	repos := repo.New(memory.NewMemoryStore())
	account, err := repos.Accounts.Create(context.Background(), model.Account{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create account failed: %v", err)
	}

	s := New(mock, signer, repos.Accounts, deniedGate{}, DefaultOptions(), logging.NewNoOpLogger(), nil)
	_, err = s.SendTransfer(context.Background(), TransferRequest{AccountID: account.ID, To: testRecipient, Amount: 1})
	if !errors.Is(err, ErrSignatureCooldown) {
		t.Errorf("Expected ErrSignatureCooldown, got %v", err)
	}
	if signer.SignCalls() != 0 {
		t.Errorf("Expected no signing prompt, got %d", signer.SignCalls())
	}
}

type deniedGate struct{}

func (deniedGate) CanRequestSignature(ctx context.Context) bool { return false }
func (deniedGate) RecordSignatureRequest(ctx context.Context)   {}

func TestSubmitter_SendTokenTransfer_CreatesRecipientAccount(t *testing.T) {
	mock := ledgertest.NewMockClient()
	signer := &wallet.FakeSigner{Address: testSender}
	s, repos, accountID := newTestSubmitter(t, mock, signer)

	var signed *ledger.UnsignedTransaction
	signer.SignFunc = func(ctx context.Context, tx *ledger.UnsignedTransaction) ([]byte, error) {
		signed = tx
		return tx.Message(), nil
	}

	result, err := s.SendTokenTransfer(context.Background(), TokenTransferRequest{
		AccountID: accountID,
		To:        testRecipient,
		Mint:      testMint,
		Amount:    1_000_000,
	})
	if err != nil {
		t.Fatalf("SendTokenTransfer failed: %v", err)
	}
	if result.Status != model.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", result.Status)
	}

	// The mock reports no recipient token account, so the transaction must
	// carry compute budget, account creation, and the transfer itself.
	if signed == nil {
		t.Fatal("Expected the wallet to receive a transaction")
	}
	var programs []string
	for _, ins := range signed.Instructions {
		programs = append(programs, ins.ProgramID)
	}
	want := []string{ledger.ComputeBudgetProgramID, ledger.AssociatedTokenProgramID, ledger.TokenProgramID}
	if len(programs) != len(want) {
		t.Fatalf("Expected programs %v, got %v", want, programs)
	}
	for i := range want {
		if programs[i] != want[i] {
			t.Errorf("Instruction %d: expected %s, got %s", i, want[i], programs[i])
		}
	}

	txs, err := repos.Accounts.Transactions(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Kind != model.TxTokenTransfer {
		t.Errorf("Expected a token transfer record, got %+v", txs)
	}
}
