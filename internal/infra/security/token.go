package security

import (
	"errors"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ adapter.TokenIssuer = (*JWTIssuer)(nil)

// UserClaims is the signed claim set. The subject is the user id.
type UserClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Plan   string `json:"plan"`
	Locale string `json:"locale"`
	jwt.RegisteredClaims
}

// JWTIssuer mints HS256 tokens with a fixed lifetime.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock swaps the time source.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	cp := *j
	cp.now = now
	return &cp
}

func (j *JWTIssuer) Issue(u *model.User) (string, time.Time, error) {
	if u.IsZero() {
		return "", time.Time{}, domain.ErrInvalidArgument
	}
	now := j.now()
	exp := now.Add(j.ttl)
	claims := UserClaims{
		Email:  u.Email,
		Name:   u.Name,
		Plan:   string(u.Subscription),
		Locale: string(u.Locale),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Truncate(time.Second), nil
}

// Verify checks signature and expiry. Every failure is domain.ErrInvalidToken.
func (j *JWTIssuer) Verify(tok string) (*adapter.TokenClaims, error) {
	if tok == "" {
		return nil, domain.ErrNoToken
	}
	claims := &UserClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	out := &adapter.TokenClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Plan:   model.Plan(claims.Plan),
		Locale: model.Locale(claims.Locale),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
