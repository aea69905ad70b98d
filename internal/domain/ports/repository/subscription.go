package repository

import (
	"context"

	"idea-to-market/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, s *model.Subscription) error
	FindByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}
