package repository

import (
	"context"

	"idea-to-market/internal/domain/model"
)

// UserRepository stores account records in the key-value store.
type UserRepository interface {
	// Create claims the email index atomically and then writes the record.
	// It returns domain.ErrEmailExists when the email is already taken.
	Create(ctx context.Context, u *model.User) error
	Save(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindIDByEmail(ctx context.Context, email string) (string, error)
}
