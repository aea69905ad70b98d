package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
)

const ledgerWriteTimeout = 5 * time.Second

var _ AuditUseCase = (*auditUC)(nil)

// AuditUseCase keeps the durable payment ledger. The key-value store stays the
// source of truth, so write failures are logged and counted, never returned.
type AuditUseCase interface {
	RecordSession(ctx context.Context, s *model.PaymentSession)
	// RecordWebhook stores the callback and, when s is known, the session's new state.
	RecordWebhook(ctx context.Context, s *model.PaymentSession, w *model.WebhookRecord)
	Recent(ctx context.Context, limit int) ([]*model.LedgerEntry, error)
	Lookup(ctx context.Context, sessionID string) (*model.LedgerEntry, []*model.WebhookRecord, error)
	// Sweep marks pending entries that expired before cutoff as abandoned. It
	// returns domain.ErrLedgerDisabled when no ledger is configured.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditUC struct {
	ledger repository.PaymentLedgerRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

// NewAuditUseCase accepts a nil ledger; every write is then a no-op.
func NewAuditUseCase(ledger repository.PaymentLedgerRepository, tm repository.TransactionManager, logger *zerolog.Logger) *auditUC {
	return &auditUC{ledger: ledger, tm: tm, log: logger}
}

func (u *auditUC) enabled() bool { return u.ledger != nil }

func (u *auditUC) RecordSession(ctx context.Context, s *model.PaymentSession) {
	if !u.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	err := u.ledger.Upsert(ctx, repository.NoTX, model.LedgerEntryFromSession(s))
	metrics.IncLedgerWrite("session", err == nil)
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("session_id", s.ID).Msg("ledger session write failed")
	}
}

func (u *auditUC) RecordWebhook(ctx context.Context, s *model.PaymentSession, w *model.WebhookRecord) {
	if !u.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	write := func(ctx context.Context, tx repository.Tx) error {
		if err := u.ledger.AppendWebhook(ctx, tx, w); err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		return u.ledger.Upsert(ctx, tx, model.LedgerEntryFromSession(s))
	}
	var err error
	if u.tm != nil {
		err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, write)
	} else {
		err = write(ctx, repository.NoTX)
	}
	metrics.IncLedgerWrite("webhook", err == nil)
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).
			Str("session_id", w.SessionID).Str("provider", w.Provider).
			Msg("ledger webhook write failed")
	}
}

func (u *auditUC) Recent(ctx context.Context, limit int) ([]*model.LedgerEntry, error) {
	defer logging.TraceDuration(u.log, "AuditUC.Recent")()
	if !u.enabled() {
		return nil, domain.ErrLedgerDisabled
	}
	return u.ledger.ListRecent(ctx, repository.NoTX, limit)
}

func (u *auditUC) Lookup(ctx context.Context, sessionID string) (*model.LedgerEntry, []*model.WebhookRecord, error) {
	defer logging.TraceDuration(u.log, "AuditUC.Lookup")()
	if !u.enabled() {
		return nil, nil, domain.ErrLedgerDisabled
	}
	e, err := u.ledger.FindBySessionID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, nil, err
	}
	hooks, err := u.ledger.ListWebhooks(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return e, hooks, nil
}

func (u *auditUC) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	defer logging.TraceDuration(u.log, "AuditUC.Sweep")()
	if !u.enabled() {
		return 0, domain.ErrLedgerDisabled
	}
	n, err := u.ledger.MarkAbandoned(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AddSessionsAbandoned(n)
	return n, nil
}
