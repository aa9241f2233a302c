package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoCodeAlone/storeadmin/asset"
	"github.com/GoCodeAlone/storeadmin/metrics"
)

// DefaultConcurrency bounds parallel retries when none is configured.
const DefaultConcurrency = 4

// SweepResult summarises one sweep.
type SweepResult struct {
	Removed int
	Failed  int
}

// Sweeper retries pending asset deletions. Sweeps and Track calls are
// serialised so a sweep never writes back an entry another call changed.
type Sweeper struct {
	mu          sync.Mutex
	ledger      Ledger
	remover     asset.Remover
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Collector
	now         func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithConcurrency bounds the number of parallel retries.
func WithConcurrency(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the sweeper's logger.
func WithLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records sweep results and the pending gauge.
func WithMetrics(m *metrics.Collector) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper creates a Sweeper.
func NewSweeper(ledger Ledger, remover asset.Remover, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		ledger:      ledger,
		remover:     remover,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns the ledger the sweeper drains.
func (s *Sweeper) Ledger() Ledger { return s.ledger }

// Track records a failed asset deletion for a later retry.
func (s *Sweeper) Track(ctx context.Context, p Pending, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.Attempts++
	p.LastAttemptAt = now
	if cause != nil {
		p.LastError = cause.Error()
	}
	if err := s.ledger.Add(ctx, p); err != nil {
		return err
	}
	s.refreshGauge(ctx)
	return nil
}

// Sweep retries every pending entry once. Entries whose deletion succeeds
// are removed; failures stay with an incremented attempt count. The
// returned error is a ledger failure, never a remover failure.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.ledger.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	if len(pending) == 0 {
		s.metrics.SetPendingAssets(0)
		return SweepResult{}, nil
	}

	var (
		mu  sync.Mutex
		res SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			rmErr := s.remover.RemoveAsset(gctx, p.AssetID)
			if rmErr == nil {
				if err := s.ledger.Remove(gctx, p.AssetID); err != nil && !errors.Is(err, ErrNotFound) {
					return err
				}
				s.metrics.RecordSweep(metrics.OutcomeSuccess)
				mu.Lock()
				res.Removed++
				mu.Unlock()
				return nil
			}

			s.logger.Warn("Pending asset deletion failed again",
				"asset", p.AssetID, "kind", p.Kind, "store", p.ScopeID, "attempts", p.Attempts+1, "error", rmErr)
			p.Attempts++
			p.LastError = rmErr.Error()
			p.LastAttemptAt = s.now()
			if err := s.ledger.Add(gctx, p); err != nil {
				return err
			}
			s.metrics.RecordSweep(metrics.OutcomeFailure)
			mu.Lock()
			res.Failed++
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	s.refreshGauge(ctx)
	if res.Removed > 0 || res.Failed > 0 {
		s.logger.Info("Swept pending asset deletions", "removed", res.Removed, "failed", res.Failed)
	}
	return res, err
}

func (s *Sweeper) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if left, err := s.ledger.List(ctx); err == nil {
		s.metrics.SetPendingAssets(len(left))
	}
}
