package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	client RedisClient
}

func NewSubscriptionRepo(client RedisClient) *SubscriptionRepo {
	return &SubscriptionRepo{client: client}
}

func (r *SubscriptionRepo) Save(ctx context.Context, s *model.Subscription) error {
	if s == nil || s.UserID == "" {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, subscriptionKey(s.UserID), data, 0)
}

func (r *SubscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	data, err := r.client.Get(ctx, subscriptionKey(userID))
	if err != nil {
		return nil, err
	}
	var s model.Subscription
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", userID, err)
	}
	return &s, nil
}
