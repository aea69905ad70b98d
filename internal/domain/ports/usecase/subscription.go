package usecase

import (
	"context"
	"time"

	"idea-to-market/internal/domain/model"
)

// SubscriptionActivator applies a paid plan. An activation is identified by
// (userID, plan, activatedAt); repeating it is a no-op once both records agree,
// which is how a half-finished activation is repaired.
type SubscriptionActivator interface {
	Activate(ctx context.Context, userID string, plan model.Plan, activatedAt time.Time) (*model.Subscription, error)
}
