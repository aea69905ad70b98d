// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/domain/ports/usecase"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
)

const (
	userLockTTL = 10 * time.Second
	// covers the nested user lock taken by activation
	sessionLockTTL = 30 * time.Second
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	usecase.SubscriptionActivator
	Get(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs   repository.SubscriptionRepository
	users  repository.UserRepository
	locker repository.Locker
	events usecase.EventEmitter
	period time.Duration
	log    *zerolog.Logger
	now    func() time.Time
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, users repository.UserRepository, locker repository.Locker, events usecase.EventEmitter, period time.Duration, logger *zerolog.Logger) *subscriptionUC {
	if period <= 0 {
		period = model.DefaultSubscriptionPeriod
	}
	return &subscriptionUC{subs: subs, users: users, locker: locker, events: events, period: period, log: logger, now: time.Now}
}

// Activate applies plan to the user as of activatedAt. The subscription record is
// written first, then the user record; each write is skipped when it already matches,
// so re-running after a partial failure finishes the job. An activation older than
// the stored one is ignored and the stored subscription is returned.
func (u *subscriptionUC) Activate(ctx context.Context, userID string, plan model.Plan, activatedAt time.Time) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Activate")()

	want, err := model.NewSubscription(userID, plan, activatedAt, u.period)
	if err != nil {
		if !plan.Valid() {
			return nil, domain.ErrInvalidPlan
		}
		return nil, err
	}

	unlock, err := lockUser(ctx, u.locker, userID)
	if err != nil {
		metrics.IncActivation(string(plan), "locked")
		return nil, err
	}
	defer unlock()

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncActivation(string(plan), "user_not_found")
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	cur, err := u.subs.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if cur != nil && cur.ActivatedAt.After(want.ActivatedAt) {
		u.log.Warn().Str("user_id", userID).Str("plan", string(plan)).
			Time("stored_at", cur.ActivatedAt).Time("requested_at", want.ActivatedAt).
			Msg("stale activation ignored")
		metrics.IncActivation(string(plan), "stale")
		return cur, nil
	}

	changed := false
	if !sameSubscription(cur, want) {
		if err := u.subs.Save(ctx, want); err != nil {
			metrics.IncActivation(string(plan), "error")
			return nil, err
		}
		changed = true
	}
	if !want.AppliedTo(user) {
		user.ApplyPlan(want)
		if err := u.users.Save(ctx, user); err != nil {
			metrics.IncActivation(string(plan), "error")
			return nil, err
		}
		changed = true
	}

	if !changed {
		metrics.IncActivation(string(plan), "noop")
		return want, nil
	}
	metrics.IncActivation(string(plan), "applied")
	u.events.Emit(ctx, model.EventSubscriptionActivated, userID, user.Locale, map[string]any{
		"plan":      string(plan),
		"expiresAt": want.ExpiresAt,
	})
	logging.With(logging.WithUserID(ctx, userID), u.log).Info().Str("plan", string(plan)).Msg("subscription activated")
	return want, nil
}

func (u *subscriptionUC) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Get")()
	sub, err := u.subs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// the stored record keeps its status; a past period reads as inactive
	if sub.Status == model.SubscriptionStatusActive && !sub.IsActiveAt(u.now()) {
		sub.Status = model.SubscriptionStatusInactive
	}
	return sub, nil
}

func sameSubscription(a, b *model.Subscription) bool {
	return a != nil && b != nil &&
		a.Plan == b.Plan &&
		a.Status == b.Status &&
		a.ActivatedAt.Equal(b.ActivatedAt) &&
		a.ExpiresAt.Equal(b.ExpiresAt)
}

// lockUser serializes read-modify-write cycles on one user record.
func lockUser(ctx context.Context, locker repository.Locker, userID string) (func(), error) {
	return lockKey(ctx, locker, fmt.Sprintf("lock:user:%s", userID), userLockTTL)
}

// lockSession serializes webhook reconciliation of one payment session.
func lockSession(ctx context.Context, locker repository.Locker, sessionID string) (func(), error) {
	return lockKey(ctx, locker, fmt.Sprintf("lock:payment:%s", sessionID), sessionLockTTL)
}

func lockKey(ctx context.Context, locker repository.Locker, key string, ttl time.Duration) (func(), error) {
	token, err := locker.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return func() {
		_ = locker.Unlock(context.WithoutCancel(ctx), key, token)
	}, nil
}
