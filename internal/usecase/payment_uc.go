// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
	"idea-to-market/internal/domain/ports/repository"
	"idea-to-market/internal/domain/ports/usecase"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
)

var _ PaymentUseCase = (*paymentUC)(nil)

type CreateSessionInput struct {
	UserID   string                `validate:"-"`
	Plan     string                `validate:"required"`
	Method   string                `validate:"required"`
	Amount   decimal.Decimal       `validate:"-"`
	Locale   model.Locale          `validate:"-"`
	Metadata model.RequestMetadata `validate:"-"`
}

// SessionResult is the created session plus the provider payload for the client.
type SessionResult struct {
	Session  *model.PaymentSession
	Checkout map[string]any
}

// WebhookOutcome describes what a verified callback did.
type WebhookOutcome struct {
	SessionID string
	Status    model.PaymentStatus
	// Applied is false when the callback was acknowledged without changing anything.
	Applied bool
	Reason  string
}

type PaymentUseCase interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (*SessionResult, error)
	GetStatus(ctx context.Context, sessionID string) (*model.PaymentSession, error)
	// SignatureHeader names the header a provider signs its callbacks in.
	SignatureHeader(provider string) (string, error)
	// HandleWebhook verifies before it parses or mutates. Only signature and
	// provider errors are meant to be shown to the caller as 4xx.
	HandleWebhook(ctx context.Context, provider string, body []byte, signature string) (*WebhookOutcome, error)
}

type paymentUC struct {
	sessions  repository.PaymentSessionRepository
	locker    repository.Locker
	providers adapter.ProviderRegistry
	activator usecase.SubscriptionActivator
	audit     AuditUseCase
	events    usecase.EventEmitter
	ttl       time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

func NewPaymentUseCase(
	sessions repository.PaymentSessionRepository,
	locker repository.Locker,
	providers adapter.ProviderRegistry,
	activator usecase.SubscriptionActivator,
	audit AuditUseCase,
	events usecase.EventEmitter,
	ttl time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	if ttl <= 0 {
		ttl = model.DefaultPaymentSessionTTL
	}
	return &paymentUC{
		sessions:  sessions,
		locker:    locker,
		providers: providers,
		activator: activator,
		audit:     audit,
		events:    events,
		ttl:       ttl,
		log:       logger,
		now:       time.Now,
	}
}

func (u *paymentUC) CreateSession(ctx context.Context, in CreateSessionInput) (*SessionResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateSession")()

	if err := validate.Struct(in); err != nil || !in.Amount.IsPositive() {
		return nil, domain.ErrMissingPaymentInfo
	}
	plan, err := model.ParsePlan(in.Plan)
	if err != nil {
		return nil, err
	}
	method, err := model.ParsePaymentMethod(in.Method)
	if err != nil {
		return nil, err
	}
	provider, err := u.providers.ForMethod(method)
	if err != nil {
		return nil, err
	}

	s, err := model.NewPaymentSession(in.UserID, plan, method, in.Amount, model.CurrencySAR, in.Locale, in.Metadata, u.now(), u.ttl)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSessID(ctx, s.ID)
	log := logging.With(ctx, u.log)

	if err := u.sessions.Create(ctx, s, u.ttl); err != nil {
		log.Error().Err(err).Msg("payment session write failed")
		return nil, err
	}
	u.audit.RecordSession(ctx, s)

	checkout, err := provider.Checkout(ctx, s)
	if err != nil {
		metrics.IncPaymentSession(string(method), "error")
		log.Error().Err(err).Str("provider", string(method)).Str("user_id", s.UserID).
			Msg("provider checkout failed")
		return nil, fmt.Errorf("checkout %s: %w", method, err)
	}

	metrics.IncPaymentSession(string(method), string(s.Status))
	u.events.Emit(ctx, model.EventPaymentInitiated, s.UserID, s.Locale, map[string]any{
		"sessionId":     s.ID,
		"planType":      string(plan),
		"paymentMethod": string(method),
		"amount":        s.Amount.StringFixed(2),
		"currency":      s.Currency,
	})
	log.Info().Str("method", string(method)).Str("plan", string(plan)).Msg("payment session created")
	return &SessionResult{Session: s, Checkout: checkout}, nil
}

func (u *paymentUC) GetStatus(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.GetStatus")()

	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}
	s, err := u.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	// the store evicts at the same instant; this covers clock skew with it
	if s.Status == model.PaymentStatusPending && s.IsExpiredAt(u.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (u *paymentUC) SignatureHeader(provider string) (string, error) {
	p, err := u.providers.ForWebhook(provider)
	if err != nil {
		return "", err
	}
	return p.SignatureHeader(), nil
}

func (u *paymentUC) HandleWebhook(ctx context.Context, provider string, body []byte, signature string) (*WebhookOutcome, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.HandleWebhook")()

	p, err := u.providers.ForWebhook(provider)
	if err != nil {
		metrics.IncWebhook(provider, "unsupported")
		return nil, err
	}
	if !p.VerifyWebhook(signature, body) {
		metrics.IncWebhook(provider, "invalid_signature")
		logging.With(ctx, u.log).Warn().Str("provider", provider).Msg("webhook signature rejected")
		return nil, domain.ErrInvalidSignature
	}
	ev, err := p.ParseWebhook(body)
	if err != nil {
		metrics.IncWebhook(provider, "malformed")
		return nil, err
	}

	ctx = logging.WithProvider(logging.WithSessID(ctx, ev.SessionID), provider)
	log := logging.With(ctx, u.log)
	out := &WebhookOutcome{SessionID: ev.SessionID, Status: ev.Status}
	record := &model.WebhookRecord{
		SessionID:  ev.SessionID,
		Provider:   provider,
		Status:     ev.Status,
		Payload:    ev.Raw,
		ReceivedAt: u.now().UTC(),
	}

	if ev.Status == "" {
		out.Reason = "ignored_event"
		metrics.IncWebhook(provider, out.Reason)
		return out, nil
	}

	unlock, err := lockSession(ctx, u.locker, ev.SessionID)
	if err != nil {
		// a concurrent delivery for this session is in flight; the provider retries
		metrics.IncWebhook(provider, "busy")
		log.Warn().Err(err).Msg("payment session locked by another webhook")
		return nil, err
	}
	defer unlock()

	s, err := u.GetStatus(ctx, ev.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		// acknowledged so the provider does not retry forever
		log.Warn().Msg("webhook for unknown payment session")
		out.Reason = "session_not_found"
		metrics.IncWebhook(provider, out.Reason)
		u.audit.RecordWebhook(ctx, nil, record)
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	if owner, err := u.providers.ForMethod(s.Method); err != nil || owner.WebhookName() != provider {
		log.Warn().Str("method", string(s.Method)).Msg("webhook provider does not own the payment session")
		out.Reason = "provider_mismatch"
		metrics.IncWebhook(provider, out.Reason)
		u.audit.RecordWebhook(ctx, nil, record)
		return out, nil
	}

	wasCompleted := s.Status == model.PaymentStatusCompleted
	if err := s.Resolve(ev.Status, provider, body, record.ReceivedAt); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn().Str("stored", string(s.Status)).Str("received", string(ev.Status)).
				Msg("conflicting webhook for resolved session")
			out.Reason = "conflict"
			metrics.IncWebhook(provider, out.Reason)
			u.audit.RecordWebhook(ctx, nil, record)
			return out, nil
		}
		return nil, err
	}
	if err := u.sessions.Update(ctx, s); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("payment session expired while handling webhook")
			out.Reason = "session_not_found"
			metrics.IncWebhook(provider, out.Reason)
			u.audit.RecordWebhook(ctx, nil, record)
			return out, nil
		}
		log.Error().Err(err).Msg("payment session update failed")
		return nil, err
	}
	u.audit.RecordWebhook(ctx, s, record)
	out.Applied = true

	if s.Status != model.PaymentStatusCompleted {
		metrics.IncWebhook(provider, string(s.Status))
		u.events.Emit(ctx, model.EventPaymentFailed, s.UserID, s.Locale, map[string]any{
			"sessionId": s.ID, "paymentMethod": string(s.Method),
		})
		log.Info().Msg("payment failed")
		return out, nil
	}

	if !wasCompleted {
		metrics.AddPaymentRevenue(s.Currency, s.Amount)
	}
	if s.UserID == "" {
		log.Warn().Msg("completed payment has no owner; nothing to activate")
		metrics.IncWebhook(provider, "completed_anonymous")
		return out, nil
	}
	if _, err := u.activator.Activate(ctx, s.UserID, s.Plan, *s.ResolvedAt); err != nil {
		// the provider retries on a non-2xx answer, which re-runs the activation
		log.Error().Err(err).Str("user_id", s.UserID).Str("plan", string(s.Plan)).
			Msg("subscription activation failed")
		metrics.IncWebhook(provider, "activation_error")
		return nil, fmt.Errorf("activate %s: %w", s.UserID, err)
	}
	metrics.IncWebhook(provider, string(s.Status))
	u.events.Emit(ctx, model.EventPaymentCompleted, s.UserID, s.Locale, map[string]any{
		"sessionId":     s.ID,
		"planType":      string(s.Plan),
		"paymentMethod": string(s.Method),
		"amount":        s.Amount.StringFixed(2),
	})
	log.Info().Str("plan", string(s.Plan)).Msg("payment completed")
	return out, nil
}
