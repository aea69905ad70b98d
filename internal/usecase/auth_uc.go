package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/domain/ports/usecase"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
)

var _ AuthUseCase = (*authUC)(nil)

type RegisterInput struct {
	Email    string       `validate:"required,email"`
	Name     string       `validate:"required"`
	Password string       `validate:"required"`
	Phone    string       `validate:"omitempty,saudi_phone"`
	Locale   model.Locale `validate:"-"`
}

type loginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// AuthResult is returned by every operation that mints a token.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// AuthUseCase owns account creation and stateless token handling.
type AuthUseCase interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Refresh mints a token from the stored user, not from the old token's claims.
	Refresh(ctx context.Context, token string) (*AuthResult, error)
	Verify(ctx context.Context, token string) (*model.User, error)
	// Authenticate checks signature and expiry only; it never touches the store.
	Authenticate(token string) (*adapter.TokenClaims, error)
}

type authUC struct {
	users  repository.UserRepository
	hasher adapter.PasswordHasher
	tokens adapter.TokenIssuer
	locker repository.Locker
	events usecase.EventEmitter
	log    *zerolog.Logger
	now    func() time.Time
	dev    bool

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthUseCase(users repository.UserRepository, hasher adapter.PasswordHasher, tokens adapter.TokenIssuer, locker repository.Locker, events usecase.EventEmitter, logger *zerolog.Logger) *authUC {
	return &authUC{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		locker: locker,
		events: events,
		log:    logger,
		now:    time.Now,
	}
}

// WithDevMode logs account emails unredacted.
func (u *authUC) WithDevMode(dev bool) *authUC {
	u.dev = dev
	return u
}

func (u *authUC) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Register")()

	in.Email = model.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = model.NormalizePhone(in.Phone)
	if err := validate.Struct(in); err != nil {
		metrics.IncAuth("register", false)
		return nil, validationError(err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(in.Email, in.Name, in.Phone, hash, in.Locale)
	if err != nil {
		return nil, err
	}
	if err := u.users.Create(ctx, user); err != nil {
		metrics.IncAuth("register", false)
		if errors.Is(err, domain.ErrEmailExists) {
			u.log.Info().Str("code", "DUPLICATE_EMAIL").Str("email", logging.Redact(in.Email, u.dev)).
				Msg("registration refused")
		}
		return nil, err
	}

	res, err := u.issue(user)
	if err != nil {
		return nil, err
	}
	metrics.IncAuth("register", true)
	u.events.Emit(ctx, model.EventUserRegistered, user.ID, user.Locale, map[string]any{
		"hasPhone": user.Phone != "",
	})
	logging.With(logging.WithUserID(ctx, user.ID), u.log).Info().Msg("user registered")
	return res, nil
}

func (u *authUC) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Login")()

	in := loginInput{Email: model.NormalizeEmail(email), Password: password}
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrMissingCredentials
	}

	id, err := u.users.FindIDByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// spend the same hashing effort as a real check
		u.hasher.Verify(u.fallbackHash(), in.Password)
		metrics.IncAuth("login", false)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Error().Str("user_id", id).Msg("email index points at a missing user")
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.hasher.Verify(user.PasswordHash, in.Password) {
		metrics.IncAuth("login", false)
		logging.With(logging.WithUserID(ctx, user.ID), u.log).Debug().
			Str("email", logging.Redact(in.Email, u.dev)).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	user, err = u.markLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	res, err := u.issue(user)
	if err != nil {
		return nil, err
	}
	metrics.IncAuth("login", true)
	u.events.Emit(ctx, model.EventUserLoggedIn, user.ID, user.Locale, nil)
	return res, nil
}

func (u *authUC) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Refresh")()

	user, err := u.Verify(ctx, token)
	if err != nil {
		metrics.IncAuth("refresh", false)
		return nil, err
	}
	res, err := u.issue(user)
	if err != nil {
		return nil, err
	}
	metrics.IncAuth("refresh", true)
	return res, nil
}

func (u *authUC) Verify(ctx context.Context, token string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Verify")()

	claims, err := u.Authenticate(token)
	if err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.LapseAt(u.now())
	return user, nil
}

func (u *authUC) Authenticate(token string) (*adapter.TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrNoToken
	}
	return u.tokens.Verify(token)
}

// markLogin re-reads the user under the user lock so a concurrent activation is not overwritten.
func (u *authUC) markLogin(ctx context.Context, userID string) (*model.User, error) {
	unlock, err := lockUser(ctx, u.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.LapseAt(u.now())
	user.MarkLogin(u.now())
	if err := u.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *authUC) issue(user *model.User) (*AuthResult, error) {
	tok, exp, err := u.tokens.Issue(user)
	if err != nil {
		u.log.Error().Err(err).Str("user_id", user.ID).Msg("token issue failed")
		return nil, err
	}
	return &AuthResult{User: user, Token: tok, ExpiresAt: exp}, nil
}

func (u *authUC) fallbackHash() string {
	u.dummyOnce.Do(func() {
		if h, err := u.hasher.Hash("not-a-real-password"); err == nil {
			u.dummyHash = h
		}
	})
	return u.dummyHash
}
