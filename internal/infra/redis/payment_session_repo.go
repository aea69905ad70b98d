package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/infra/metrics"
)

var _ repository.PaymentSessionRepository = (*PaymentSessionRepo)(nil)

// PaymentSessionRepo keeps checkout sessions under payment:<id>. The key
// expires with the session; an evicted session reads as domain.ErrNotFound.
type PaymentSessionRepo struct {
	client RedisClient
}

func NewPaymentSessionRepo(client RedisClient) *PaymentSessionRepo {
	return &PaymentSessionRepo{client: client}
}

func (r *PaymentSessionRepo) Create(ctx context.Context, s *model.PaymentSession, ttl time.Duration) error {
	if s == nil || s.ID == "" || ttl <= 0 {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, paymentKey(s.ID), data, ttl)
}

func (r *PaymentSessionRepo) Update(ctx context.Context, s *model.PaymentSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.ReplaceKeepTTL(ctx, paymentKey(s.ID), data)
}

func (r *PaymentSessionRepo) FindByID(ctx context.Context, id string) (*model.PaymentSession, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	data, err := r.client.Get(ctx, paymentKey(id))
	metrics.IncKVRead("payment_session", err == nil)
	if err != nil {
		return nil, err
	}
	var s model.PaymentSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode payment session %s: %w", id, err)
	}
	return &s, nil
}
