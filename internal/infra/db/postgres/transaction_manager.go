package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"idea-to-market/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// TxManager runs ledger writes in a pgx transaction. The pgx.Tx handle
// reaches repositories through the tx argument.
type TxManager struct {
	pool     *pgxpool.Pool
	attempts int
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, attempts: 3}
}

// WithTx commits when fn returns nil and rolls back otherwise. Serialization
// failures and deadlocks rerun fn in a fresh transaction.
func (m *TxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	var err error
	for i := 0; i < m.attempts; i++ {
		if err = m.once(ctx, txOpt, fn); !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (m *TxManager) once(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, txOpt)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
