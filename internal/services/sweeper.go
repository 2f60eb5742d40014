package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/commercelab/mollie-sync/internal/metrics"
	repo "github.com/commercelab/mollie-sync/internal/repository"
	"github.com/commercelab/mollie-sync/internal/worker"
)

const sweepBatch = 100

// Sweeper periodically re-checks orders whose latest transaction is still
// undecided. Each order runs through the same serialized reconcile path as
// the webhook, so a sweep racing a webhook is harmless.
type Sweeper struct {
	store    repo.Store
	rec      *Reconciler
	pool     *worker.Pool
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(store repo.Store, rec *Reconciler, pool *worker.Pool, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{store: store, rec: rec, pool: pool, interval: interval, log: log}
}

// Run blocks until ctx is done. A zero interval disables the sweep.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	txns, err := s.store.Transactions().ListUndecided(ctx, sweepBatch)
	if err != nil {
		s.log.Error("sweep: list undecided", "err", err)
		return
	}
	metrics.SweepQueueDepth.Set(float64(len(txns)))

	for _, txn := range txns {
		id := txn.ID
		s.pool.Submit(func() {
			defer metrics.SweepQueueDepth.Set(float64(s.pool.Depth()))
			if _, err := s.rec.ReconcileTransaction(ctx, id, TriggerSweep); err != nil {
				s.log.Warn("sweep: reconcile", "transaction", id, "err", err)
			}
		})
	}
}
