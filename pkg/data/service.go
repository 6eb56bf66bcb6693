// Package data is the unified access layer the rest of the application talks
// to. Reads try the backend first and fall back to the local store when the
// call fails; writes always land locally and are queued for replay when the
// backend cannot take them. Reads are never queued.
package data

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solbank/pkg/ledger"
	"solbank/pkg/logging"
	"solbank/pkg/metrics"
	"solbank/pkg/remote"
	"solbank/pkg/repo"
	"solbank/pkg/syncq"
)

// Service fronts the backend API, the local repositories, and the offline
// sync queue behind one interface.
type Service struct {
	remote    remote.Client
	repos     *repo.Repositories
	queue     *syncq.Queue
	logger    *logging.Logger
	collector metrics.Collector

	online atomic.Bool
	clock  func() time.Time
	reader *ledger.Reader
}

// New creates the service. It starts in the online state; the first failed
// remote call flips it offline.
func New(client remote.Client, repos *repo.Repositories, queue *syncq.Queue, logger *logging.Logger, collector metrics.Collector) *Service {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &Service{
		remote:    client,
		repos:     repos,
		queue:     queue,
		logger:    logger.Named("data"),
		collector: collector,
		clock:     time.Now,
	}
	s.online.Store(true)
	return s
}

// Online reports whether the service currently believes the backend is
// reachable.
func (s *Service) Online() bool {
	return s.online.Load()
}

// SetOnline flips connectivity. Coming back online drains the sync queue.
func (s *Service) SetOnline(ctx context.Context, online bool) {
	was := s.online.Swap(online)
	if was == online {
		return
	}
	if online {
		s.logger.Info("connectivity restored, draining queue")
		if result, err := s.queue.Drain(ctx); err != nil {
			s.logger.Error("drain after reconnect", zap.Error(err))
		} else {
			s.logger.Info("reconnect drain finished",
				zap.Int("synced", result.Synced),
				zap.Int("retained", result.Retained),
				zap.Int("deadLetter", result.DeadLetter))
		}
		return
	}
	s.logger.Warn("backend unreachable, switching to local data")
}

// WatchConnectivity pings the backend on the given cadence and flips the
// online state on transitions. Blocks until ctx is done.
func (s *Service) WatchConnectivity(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.remote.Ping(ctx)
			s.SetOnline(ctx, err == nil)
		}
	}
}

// AttachReader wires a ledger balance reader into the service.
func (s *Service) AttachReader(reader *ledger.Reader) {
	s.reader = reader
}

// WalletBalance reads an on-ledger balance through the rate-limited reader.
// tokenMint may be empty for the native balance. A degraded read reports
// zero with ConfidenceUnknown; callers must not present that zero as truth.
func (s *Service) WalletBalance(ctx context.Context, address, tokenMint string) (float64, ledger.Confidence) {
	if s.reader == nil {
		return 0, ledger.ConfidenceUnknown
	}
	return s.reader.Balance(ctx, address, tokenMint)
}

// Queue exposes the underlying sync queue for inspection.
func (s *Service) Queue() *syncq.Queue {
	return s.queue
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// degrade records a failed remote call before the caller falls back to
// local data. Every error takes the fallback path; unreachability
// additionally flips the service offline so later calls skip the backend.
func (s *Service) degrade(ctx context.Context, resource string, err error) {
	s.collector.RecordFallback(resource)
	if remote.IsUnavailable(err) {
		s.SetOnline(ctx, false)
		return
	}
	s.logger.Warn("remote call failed, using local data",
		zap.String("resource", resource),
		zap.Error(err))
}
