package repository

import (
	"context"
	"time"

	"idea-to-market/internal/domain/model"
)

// PaymentSessionRepository keeps checkout sessions with a store-level TTL.
// Records disappear after the TTL whatever their status.
type PaymentSessionRepository interface {
	Create(ctx context.Context, s *model.PaymentSession, ttl time.Duration) error
	// Update rewrites the record without touching its remaining TTL.
	Update(ctx context.Context, s *model.PaymentSession) error
	FindByID(ctx context.Context, id string) (*model.PaymentSession, error)
}
