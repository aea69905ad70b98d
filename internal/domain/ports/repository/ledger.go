package repository

import (
	"context"
	"time"

	"idea-to-market/internal/domain/model"
)

// PaymentLedgerRepository is the durable audit trail for payment sessions.
type PaymentLedgerRepository interface {
	Upsert(ctx context.Context, tx Tx, e *model.LedgerEntry) error
	AppendWebhook(ctx context.Context, tx Tx, w *model.WebhookRecord) error
	FindBySessionID(ctx context.Context, tx Tx, sessionID string) (*model.LedgerEntry, error)
	ListWebhooks(ctx context.Context, tx Tx, sessionID string) ([]*model.WebhookRecord, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.LedgerEntry, error)
	// MarkAbandoned flags pending rows whose expiry is before cutoff and returns how many changed.
	MarkAbandoned(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
