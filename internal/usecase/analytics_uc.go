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
	"idea-to-market/internal/domain/ports/usecase"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
	"idea-to-market/internal/infra/worker"
)

const (
	analyticsWriteTimeout = 3 * time.Second
	dashboardEventLimit   = 20
)

var _ AnalyticsUseCase = (*analyticsUC)(nil)

// TaskSubmitter is satisfied by *worker.Pool.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

type TrackInput struct {
	Event      string
	UserID     string
	Locale     model.Locale
	Properties map[string]any
	Metadata   model.RequestMetadata
}

type DashboardSubscription struct {
	Plan          model.Plan               `json:"plan"`
	Status        model.SubscriptionStatus `json:"status"`
	TrialDaysLeft int                      `json:"trialDaysLeft"`
	IsTrialActive bool                     `json:"isTrialActive"`
	ActivatedAt   *time.Time               `json:"activatedAt,omitempty"`
	ExpiresAt     *time.Time               `json:"expiresAt,omitempty"`
}

type DashboardStatistics struct {
	AccountAgeDays int        `json:"accountAge"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	TotalSessions  int        `json:"totalSessions"`
}

type Dashboard struct {
	Usage        model.Usage           `json:"usage"`
	Limits       model.Limits          `json:"limits"`
	Subscription DashboardSubscription `json:"subscription"`
	Statistics   DashboardStatistics   `json:"statistics"`
	Achievements []string              `json:"achievements"`
	RecentEvents []*model.Event        `json:"recentEvents"`
}

type AnalyticsUseCase interface {
	usecase.EventEmitter
	// Track records a client event. Only a full queue is reported back.
	Track(ctx context.Context, in TrackInput) error
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
}

type analyticsUC struct {
	events repository.EventRepository
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	pool   TaskSubmitter
	log    *zerolog.Logger
	now    func() time.Time
}

func NewAnalyticsUseCase(events repository.EventRepository, users repository.UserRepository, subs repository.SubscriptionRepository, pool TaskSubmitter, logger *zerolog.Logger) *analyticsUC {
	return &analyticsUC{events: events, users: users, subs: subs, pool: pool, log: logger, now: time.Now}
}

// Emit never blocks and never fails the caller.
func (u *analyticsUC) Emit(ctx context.Context, name, userID string, locale model.Locale, props map[string]any) {
	if err := u.enqueue(ctx, name, userID, locale, props); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("event", name).Msg("analytics event dropped")
	}
}

func (u *analyticsUC) Track(ctx context.Context, in TrackInput) error {
	defer logging.TraceDuration(u.log, "AnalyticsUC.Track")()

	if strings.TrimSpace(in.Event) == "" {
		return domain.ErrMissingEvent
	}
	props := make(map[string]any, len(in.Properties)+6)
	for k, v := range in.Properties {
		props[k] = v
	}
	props["locale"] = string(in.Locale)
	props["timezone"] = model.DefaultTimezone
	props["currency"] = model.DefaultCurrency
	for k, v := range map[string]string{
		"country":   in.Metadata.Country,
		"userAgent": in.Metadata.UserAgent,
		"ip":        in.Metadata.IP,
	} {
		if v != "" {
			props[k] = v
		}
	}
	err := u.enqueue(ctx, in.Event, in.UserID, in.Locale, props)
	if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
		return domain.ErrAnalyticsQueueFull
	}
	return err
}

func (u *analyticsUC) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	defer logging.TraceDuration(u.log, "AnalyticsUC.Dashboard")()

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.LapseAt(u.now())

	d := &Dashboard{
		Usage:  user.Usage,
		Limits: user.Subscription.Limits(),
		Subscription: DashboardSubscription{
			Plan:          user.Subscription,
			Status:        user.SubscriptionStatus,
			TrialDaysLeft: user.TrialDaysLeft,
			IsTrialActive: user.IsTrialActive,
			ActivatedAt:   user.SubscriptionActivatedAt,
		},
		Statistics: DashboardStatistics{
			AccountAgeDays: int(u.now().Sub(user.CreatedAt) / (24 * time.Hour)),
			LastLogin:      user.LastLoginAt,
			TotalSessions:  user.Usage.Total(),
		},
		Achievements: achievements(user.Usage),
		RecentEvents: []*model.Event{},
	}

	if sub, err := u.subs.FindByUserID(ctx, userID); err == nil {
		exp := sub.ExpiresAt
		d.Subscription.ExpiresAt = &exp
	} else if !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, u.log).Warn().Err(err).Msg("dashboard subscription lookup failed")
	}
	if evs, err := u.events.ListByUser(ctx, userID, dashboardEventLimit); err == nil {
		d.RecentEvents = evs
	} else {
		logging.With(ctx, u.log).Warn().Err(err).Msg("dashboard events lookup failed")
	}
	return d, nil
}

func (u *analyticsUC) enqueue(ctx context.Context, name, userID string, locale model.Locale, props map[string]any) error {
	ev, err := model.NewEvent(name, userID, locale, props, u.now())
	if err != nil {
		return err
	}
	traceID := logging.TraceIDFrom(ctx)
	err = u.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, analyticsWriteTimeout)
		defer cancel()
		if err := u.events.Append(ctx, ev); err != nil {
			metrics.IncAnalyticsEvent("error")
			u.log.Warn().Err(err).Str("trace_id", traceID).Str("event", ev.Name).Msg("analytics write failed")
			return nil
		}
		metrics.IncAnalyticsEvent("ok")
		return nil
	})
	if err != nil {
		metrics.IncAnalyticsEvent("dropped")
	}
	return err
}

// achievements mirrors the usage milestones shown on the dashboard.
func achievements(us model.Usage) []string {
	out := []string{}
	if us.BrainstormSessions >= 1 {
		out = append(out, "first_idea")
	}
	if us.PRDDocuments >= 5 {
		out = append(out, "prd_master")
	}
	if us.PrototypesGenerated >= 3 {
		out = append(out, "prototype_pioneer")
	}
	return out
}
