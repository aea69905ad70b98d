package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
)

var _ repository.PaymentLedgerRepository = (*paymentLedgerRepo)(nil)

// PayloadSealer encrypts webhook payloads at rest. security.EncryptionService satisfies it.
type PayloadSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(data []byte) ([]byte, error)
}

type paymentLedgerRepo struct {
	pool   *pgxpool.Pool
	sealer PayloadSealer
}

// NewPaymentLedgerRepo stores webhook payloads in clear text when sealer is nil.
func NewPaymentLedgerRepo(pool *pgxpool.Pool, sealer PayloadSealer) *paymentLedgerRepo {
	return &paymentLedgerRepo{pool: pool, sealer: sealer}
}

const ledgerColumns = `session_id, user_id, plan, method, amount::text, currency, status, locale, created_at, expires_at, resolved_at, updated_at`

// Upsert never moves a terminal row back; resolved_at keeps its first value.
func (r *paymentLedgerRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO payment_ledger (
  session_id, user_id, plan, method, amount, currency, status, locale, created_at, expires_at, resolved_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (session_id) DO UPDATE SET
  status = CASE WHEN payment_ledger.status IN ('completed','failed') THEN payment_ledger.status ELSE EXCLUDED.status END,
  resolved_at = COALESCE(payment_ledger.resolved_at, EXCLUDED.resolved_at),
  updated_at = GREATEST(payment_ledger.updated_at, EXCLUDED.updated_at);`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.SessionID, e.UserID, string(e.Plan), string(e.Method), e.Amount, e.Currency, e.Status, string(e.Locale),
		e.CreatedAt, e.ExpiresAt, e.ResolvedAt, e.UpdatedAt)
	if err != nil {
		return opErr(err)
	}
	return nil
}

func (r *paymentLedgerRepo) AppendWebhook(ctx context.Context, tx repository.Tx, w *model.WebhookRecord) error {
	if w.ID == "" {
		w.ID = ulid.Make().String()
	}
	if w.ReceivedAt.IsZero() {
		w.ReceivedAt = time.Now().UTC()
	}
	payload := []byte(w.Payload)
	encrypted := false
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(payload)
		if err != nil {
			return err
		}
		payload, encrypted = sealed, true
	}

	const q = `
INSERT INTO payment_webhooks (id, session_id, provider, status, payload, encrypted, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, w.ID, w.SessionID, w.Provider, string(w.Status), payload, encrypted, w.ReceivedAt)
	if err != nil {
		return opErr(err)
	}
	return nil
}

func (r *paymentLedgerRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.LedgerEntry, error) {
	q := `SELECT ` + ledgerColumns + ` FROM payment_ledger WHERE session_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, sessionID)
	if err != nil {
		return nil, err
	}
	e, err := scanLedger(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *paymentLedgerRepo) ListWebhooks(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.WebhookRecord, error) {
	const q = `SELECT id, session_id, provider, status, payload, encrypted, received_at FROM payment_webhooks WHERE session_id=$1 ORDER BY received_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, sessionID)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.WebhookRecord
	for rows.Next() {
		var (
			w         model.WebhookRecord
			status    string
			payload   []byte
			encrypted bool
		)
		if err := rows.Scan(&w.ID, &w.SessionID, &w.Provider, &status, &payload, &encrypted, &w.ReceivedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if encrypted {
			if r.sealer == nil {
				return nil, domain.ErrOperationFailed
			}
			if payload, err = r.sealer.Open(payload); err != nil {
				return nil, err
			}
		}
		w.Status = model.PaymentStatus(status)
		w.Payload = payload
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentLedgerRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + ledgerColumns + ` FROM payment_ledger ORDER BY created_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentLedgerRepo) MarkAbandoned(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
UPDATE payment_ledger
   SET status = $2, updated_at = NOW()
 WHERE status = 'pending'
   AND expires_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff, model.LedgerStatusAbandoned)
	if err != nil {
		return 0, opErr(err)
	}
	return cmd.RowsAffected(), nil
}

func scanLedger(row pgx.Row) (*model.LedgerEntry, error) {
	var (
		e            model.LedgerEntry
		plan, method string
		locale       string
	)
	if err := row.Scan(&e.SessionID, &e.UserID, &plan, &method, &e.Amount, &e.Currency, &e.Status, &locale,
		&e.CreatedAt, &e.ExpiresAt, &e.ResolvedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Plan = model.Plan(plan)
	e.Method = model.PaymentMethod(method)
	e.Locale = model.Locale(locale)
	return &e, nil
}
