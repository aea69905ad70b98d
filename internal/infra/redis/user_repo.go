package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/infra/metrics"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores user records under user:<id> and a permanent
// user_email:<email> -> id index. The index is claimed with SETNX so two
// concurrent registrations for one address cannot both succeed.
type UserRepo struct {
	client RedisClient
}

func NewUserRepo(client RedisClient) *UserRepo {
	return &UserRepo{client: client}
}

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	email := model.NormalizeEmail(u.Email)
	ok, err := r.client.SetNX(ctx, userEmailKey(email), u.ID, 0)
	if err != nil {
		return fmt.Errorf("claim email index: %w", err)
	}
	if !ok {
		return domain.ErrEmailExists
	}
	if err := r.Save(ctx, u); err != nil {
		// release the claim so the address can register again
		_ = r.client.Del(ctx, userEmailKey(email))
		return err
	}
	return nil
}

func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	if u.IsZero() {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, userKey(u.ID), data, 0)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	data, err := r.client.Get(ctx, userKey(id))
	metrics.IncKVRead("user", err == nil)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepo) FindIDByEmail(ctx context.Context, email string) (string, error) {
	id, err := r.client.Get(ctx, userEmailKey(model.NormalizeEmail(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNotFound
	}
	return id, err
}
