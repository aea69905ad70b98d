package usecase

import (
	"context"

	"idea-to-market/internal/domain/model"
)

// EventEmitter records analytics without blocking or failing the caller.
type EventEmitter interface {
	Emit(ctx context.Context, name, userID string, locale model.Locale, props map[string]any)
}
