package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
)

var _ UserUseCase = (*userUC)(nil)

// ProfileUpdate holds optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name        *string
	Phone       *string
	Preferences *model.PreferencesPatch
}

// UsageReport is the entitlement view of a user.
type UsageReport struct {
	Usage              model.Usage              `json:"usage"`
	Limits             model.Limits             `json:"limits"`
	Subscription       model.Plan               `json:"subscription"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscriptionStatus"`
	Features           []string                 `json:"features"`
	TrialDaysLeft      int                      `json:"trialDaysLeft"`
	IsTrialActive      bool                     `json:"isTrialActive"`
}

func NewUsageReport(u *model.User) *UsageReport {
	return &UsageReport{
		Usage:              u.Usage,
		Limits:             u.Subscription.Limits(),
		Subscription:       u.Subscription,
		SubscriptionStatus: u.SubscriptionStatus,
		Features:           append([]string(nil), u.Features...),
		TrialDaysLeft:      u.TrialDaysLeft,
		IsTrialActive:      u.IsTrialActive,
	}
}

type UserUseCase interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error)
	GetUsage(ctx context.Context, userID string) (*UsageReport, error)
	// RecordUsage adds one use of feature, refusing once the plan limit is reached.
	RecordUsage(ctx context.Context, userID, feature string) (*UsageReport, error)
}

type userUC struct {
	users  repository.UserRepository
	locker repository.Locker
	log    *zerolog.Logger
	now    func() time.Time
}

func NewUserUseCase(users repository.UserRepository, locker repository.Locker, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, locker: locker, log: logger, now: time.Now}
}

func (u *userUC) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetProfile")()
	return u.load(ctx, userID)
}

func (u *userUC) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.UpdateProfile")()

	var name, phone string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if err := validate.Var(name, "required"); err != nil {
			return nil, domain.ErrMissingFields
		}
	}
	if in.Phone != nil {
		phone = model.NormalizePhone(*in.Phone)
		if err := validate.Var(phone, "omitempty,saudi_phone"); err != nil {
			return nil, domain.ErrInvalidPhone
		}
	}

	unlock, err := lockUser(ctx, u.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = phone
	}
	user.Preferences.Merge(in.Preferences)
	user.Touch()
	if err := u.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) GetUsage(ctx context.Context, userID string) (*UsageReport, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetUsage")()
	user, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewUsageReport(user), nil
}

func (u *userUC) RecordUsage(ctx context.Context, userID, feature string) (*UsageReport, error) {
	defer logging.TraceDuration(u.log, "UserUC.RecordUsage")()

	f, err := model.ParseUsageFeature(feature)
	if err != nil {
		return nil, err
	}
	unlock, err := lockUser(ctx, u.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.Usage.Increment(f, user.Subscription.Limits()); err != nil {
		metrics.IncUsage(string(f), "limited")
		return nil, err
	}
	user.Touch()
	if err := u.users.Save(ctx, user); err != nil {
		metrics.IncUsage(string(f), "error")
		return nil, err
	}
	metrics.IncUsage(string(f), "ok")
	return NewUsageReport(user), nil
}

// load returns the user with an ended paid period already lapsed to the free
// tier. Writers persist the lapse with their own save.
func (u *userUC) load(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.LapseAt(u.now()) {
		logging.With(ctx, u.log).Debug().Str("user_id", user.ID).Msg("paid plan period ended")
	}
	return user, nil
}
