package repository

import (
	"context"

	"idea-to-market/internal/domain/model"
)

// EventRepository keeps capped, newest-first analytics streams.
type EventRepository interface {
	Append(ctx context.Context, e *model.Event) error
	ListRecent(ctx context.Context, limit int) ([]*model.Event, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Event, error)
}
