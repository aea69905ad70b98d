package model

import (
	"encoding/json"
	"strings"
	"time"

	"idea-to-market/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of checkout methods a session may use.
type PaymentMethod string

const (
	PaymentMethodMada      PaymentMethod = "mada"
	PaymentMethodSTCPay    PaymentMethod = "stc_pay"
	PaymentMethodApplePay  PaymentMethod = "apple_pay"
	PaymentMethodGooglePay PaymentMethod = "google_pay"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.TrimSpace(s)); m {
	case PaymentMethodMada, PaymentMethodSTCPay, PaymentMethodApplePay, PaymentMethodGooglePay:
		return m, nil
	}
	return "", domain.ErrUnsupportedPaymentMethod
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

const (
	CurrencySAR = "SAR"

	DefaultPaymentSessionTTL = 30 * time.Minute
)

// RequestMetadata is captured from the checkout request for fraud review.
type RequestMetadata struct {
	UserAgent string `json:"userAgent,omitempty"`
	IP        string `json:"ip,omitempty"`
	Country   string `json:"country,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

// PaymentSession is one checkout attempt. Status moves pending -> completed|failed
// and never leaves a terminal state.
type PaymentSession struct {
	ID            string          `json:"sessionId"`
	UserID        string          `json:"userId,omitempty"`
	Plan          Plan            `json:"planType"`
	Method        PaymentMethod   `json:"paymentMethod"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ResolvedAt    *time.Time      `json:"resolvedAt,omitempty"`
	Locale        Locale          `json:"locale"`
	Metadata      RequestMetadata `json:"metadata"`
	WebhookData   json.RawMessage `json:"webhookData,omitempty"`
	WebhookSource string          `json:"webhookSource,omitempty"`
}

// NewPaymentSession opens a pending session that expires ttl after now.
func NewPaymentSession(userID string, plan Plan, method PaymentMethod, amount decimal.Decimal, currency string, locale Locale, meta RequestMetadata, now time.Time, ttl time.Duration) (*PaymentSession, error) {
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}
	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, domain.ErrMissingPaymentInfo
	}
	if currency == "" {
		currency = CurrencySAR
	}
	if ttl <= 0 {
		ttl = DefaultPaymentSessionTTL
	}
	if locale == "" {
		locale = DefaultLocale
	}
	now = now.UTC()
	return &PaymentSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      plan,
		Method:    method,
		Amount:    amount,
		Currency:  strings.ToUpper(currency),
		Status:    PaymentStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
		Locale:    locale,
		Metadata:  meta,
	}, nil
}

// Resolve moves the session to a terminal status and records the provider payload.
// Re-applying the same terminal status is accepted so duplicate deliveries are harmless;
// switching between terminal states is refused.
func (p *PaymentSession) Resolve(status PaymentStatus, source string, payload []byte, at time.Time) error {
	if !status.IsTerminal() {
		return domain.ErrInvalidArgument
	}
	if p.Status.IsTerminal() && p.Status != status {
		return domain.ErrInvalidTransition
	}
	at = at.UTC()
	if p.ResolvedAt == nil {
		p.ResolvedAt = &at
	}
	p.Status = status
	p.UpdatedAt = at
	p.WebhookSource = source
	if len(payload) > 0 && json.Valid(payload) {
		p.WebhookData = append(json.RawMessage(nil), payload...)
	}
	return nil
}

func (p *PaymentSession) IsExpiredAt(t time.Time) bool { return !t.Before(p.ExpiresAt) }

// MinorUnits converts the amount to halalas (1 SAR = 100 halalas).
func (p *PaymentSession) MinorUnits() int64 {
	return p.Amount.Shift(2).Round(0).IntPart()
}
