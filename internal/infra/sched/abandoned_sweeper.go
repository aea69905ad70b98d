package sched

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/infra/metrics"
)

// Sweeper is the ledger operation the sweeper drives; usecase.AuditUseCase satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// AbandonedSweeper periodically marks ledger entries that stayed pending past their
// expiry as abandoned. The key-value records are left to their TTL.
type AbandonedSweeper struct {
	audit    Sweeper
	pool     *pgxpool.Pool
	interval time.Duration
	grace    time.Duration
	log      *zerolog.Logger
	now      func() time.Time
}

// NewAbandonedSweeper reports pool statistics on every tick when pool is not nil.
func NewAbandonedSweeper(audit Sweeper, pool *pgxpool.Pool, interval, grace time.Duration, log *zerolog.Logger) *AbandonedSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &AbandonedSweeper{audit: audit, pool: pool, interval: interval, grace: grace, log: log, now: time.Now}
}

// Start blocks until ctx is cancelled.
func (w *AbandonedSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.log.Info().Dur("interval", w.interval).Msg("abandoned-session sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *AbandonedSweeper) tick(ctx context.Context) int64 {
	if w.pool != nil {
		metrics.ObserveLedgerPool(w.pool.Stat())
	}

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := w.audit.Sweep(runCtx, w.now().Add(-w.grace))
	if errors.Is(err, domain.ErrLedgerDisabled) {
		w.log.Debug().Msg("payment ledger disabled; sweep skipped")
		return 0
	}
	if err != nil {
		w.log.Error().Err(err).Msg("abandoned-session sweep failed")
		return 0
	}
	if n > 0 {
		w.log.Info().Int64("sessions", n).Msg("marked abandoned payment sessions")
	}
	return n
}
