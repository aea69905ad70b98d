package redis

import (
	"context"
	"encoding/json"

	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

const perUserEventCap = 200

// EventRepo appends analytics events to a global and a per-user capped list.
type EventRepo struct {
	client    RedisClient
	maxGlobal int64
}

func NewEventRepo(client RedisClient, maxGlobal int) *EventRepo {
	if maxGlobal <= 0 {
		maxGlobal = 10000
	}
	return &EventRepo{client: client, maxGlobal: int64(maxGlobal)}
}

func (r *EventRepo) Append(ctx context.Context, e *model.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.client.PushCapped(ctx, analyticsStreamKey, data, r.maxGlobal); err != nil {
		return err
	}
	if e.UserID == "" || e.UserID == model.AnonymousUser {
		return nil
	}
	return r.client.PushCapped(ctx, userEventsKey(e.UserID), data, perUserEventCap)
}

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*model.Event, error) {
	return r.list(ctx, analyticsStreamKey, limit)
}

func (r *EventRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Event, error) {
	return r.list(ctx, userEventsKey(userID), limit)
}

func (r *EventRepo) list(ctx context.Context, key string, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	raw, err := r.client.LRange(ctx, key, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Event, 0, len(raw))
	for _, item := range raw {
		var e model.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}
