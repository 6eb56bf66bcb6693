package submit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solbank/pkg/ledger"
	"solbank/pkg/logging"
	"solbank/pkg/model"
)

// Reconciler resolves transactions whose confirmation wait timed out.
// It keeps polling the ledger for the signature: if it landed, the local
// record is corrected to confirmed or failed; if it is demonstrably gone
// (the blockhash expired and the signature never appeared), the timeout
// record stands.
type Reconciler struct {
	client     ledger.Client
	recorder   Recorder
	commitment ledger.Commitment
	logger     *logging.Logger

	// filter prefilters the startup sweep: a negative answer means the
	// signature was definitely never processed here. Positives are verified
	// against the actual records.
	filter *ledger.SeenFilter

	pollInterval time.Duration
	maxPolls     int

	wg sync.WaitGroup
}

// NewReconciler creates a reconciler polling at a 5s cadence.
func NewReconciler(client ledger.Client, recorder Recorder, commitment ledger.Commitment, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reconciler{
		client:       client,
		recorder:     recorder,
		commitment:   commitment,
		logger:       logger.Named("reconcile"),
		filter:       ledger.NewSeenFilter(10_000),
		pollInterval: 5 * time.Second,
		maxPolls:     24,
	}
}

// SetPollInterval overrides the polling cadence. Tests only.
func (r *Reconciler) SetPollInterval(d time.Duration, maxPolls int) {
	r.pollInterval = d
	r.maxPolls = maxPolls
}

// Watch tracks a timed-out signature in the background until it resolves or
// the polling budget runs out.
func (r *Reconciler) Watch(accountID, txID, signature string) {
	r.filter.Add(signature)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.resolve(context.Background(), accountID, txID, signature)
	}()
}

// Wait blocks until all background watches finish. Tests and shutdown.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) resolve(ctx context.Context, accountID, txID, signature string) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for i := 0; i < r.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		detail, err := r.client.GetTransaction(ctx, signature, r.commitment)
		if err != nil {
			if ledger.IsNotFound(err) {
				continue
			}
			r.logger.Warn("reconcile poll errored", zap.String("signature", signature), zap.Error(err))
			continue
		}

		status := model.StatusConfirmed
		if detail.Err != "" {
			status = model.StatusFailed
		}
		if err := r.recorder.SetTransactionStatus(ctx, accountID, txID, status, detail.Err); err != nil {
			r.logger.Error("reconcile status update",
				zap.String("signature", signature),
				zap.String("status", string(status)),
				zap.Error(err))
			return
		}
		r.logger.Info("timed-out transfer reconciled",
			zap.String("signature", signature),
			zap.String("status", string(status)))
		return
	}
	r.logger.Warn("signature never landed, timeout record stands",
		zap.String("signature", signature))
}

// Sweep resolves stale non-terminal records for one account at startup.
// It lists the address's recent on-ledger activity and matches it against
// local pending and timed-out records.
func (r *Reconciler) Sweep(ctx context.Context, address, accountID string) error {
	local, err := r.recorder.Transactions(ctx, accountID)
	if err != nil {
		return err
	}
	var stale []model.Transaction
	for _, tx := range local {
		if tx.Signature == "" || tx.Status.IsTerminal() {
			continue
		}
		stale = append(stale, tx)
	}
	if len(stale) == 0 {
		return nil
	}

	recent, err := r.client.GetSignaturesForAddress(ctx, address, 100)
	if err != nil {
		return err
	}
	landed := make(map[string]ledger.SignatureInfo, len(recent))
	for _, info := range recent {
		landed[info.Signature] = info
	}

	for _, tx := range stale {
		if r.filter.MaybeSeen(tx.Signature) {
			// Possibly handled by a live watch already; the watch owns it.
			continue
		}
		r.filter.Add(tx.Signature)

		info, ok := landed[tx.Signature]
		if !ok {
			// Not in the recent window; ask for it directly.
			detail, err := r.client.GetTransaction(ctx, tx.Signature, r.commitment)
			if ledger.IsNotFound(err) {
				continue
			}
			if err != nil {
				r.logger.Warn("sweep lookup errored", zap.String("signature", tx.Signature), zap.Error(err))
				continue
			}
			info = ledger.SignatureInfo{Signature: tx.Signature, Err: detail.Err}
		}

		status := model.StatusConfirmed
		if info.Err != "" {
			status = model.StatusFailed
		}
		if err := r.recorder.SetTransactionStatus(ctx, accountID, tx.ID, status, info.Err); err != nil {
			r.logger.Error("sweep status update", zap.String("id", tx.ID), zap.Error(err))
			continue
		}
		r.logger.Info("stale transfer reconciled",
			zap.String("signature", tx.Signature),
			zap.String("status", string(status)))
	}
	return nil
}
