package adapter

import (
	"time"

	"idea-to-market/internal/domain/model"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenClaims is the identity carried by a bearer token.
type TokenClaims struct {
	UserID    string
	Email     string
	Name      string
	Plan      model.Plan
	Locale    model.Locale
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies stateless bearer tokens. There is no revocation;
// the token lifetime bounds exposure.
type TokenIssuer interface {
	Issue(u *model.User) (token string, expiresAt time.Time, err error)
	Verify(token string) (*TokenClaims, error)
}
