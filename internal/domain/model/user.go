package model

import (
	"regexp"
	"strings"
	"time"

	"idea-to-market/internal/domain"

	"github.com/google/uuid"
)

const (
	DefaultTimezone  = "Asia/Riyadh"
	DefaultCurrency  = "SAR"
	initialTrialDays = 1
)

var saudiMobile = regexp.MustCompile(`^(\+966|0)?5[0-9]{8}$`)

// NormalizeEmail case-folds and trims an address. The result is the index key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips all whitespace from a phone number.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// ValidSaudiPhone reports whether phone is a Saudi mobile number once whitespace is removed.
func ValidSaudiPhone(phone string) bool {
	return saudiMobile.MatchString(NormalizePhone(phone))
}

type Preferences struct {
	Language      string `json:"language"`
	Timezone      string `json:"timezone"`
	Currency      string `json:"currency"`
	Notifications bool   `json:"notifications"`
}

// PreferencesPatch carries optional preference fields from a profile update.
type PreferencesPatch struct {
	Language      *string `json:"language,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
	Currency      *string `json:"currency,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

func (p *Preferences) Merge(patch *PreferencesPatch) {
	if patch == nil {
		return
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.Timezone != nil {
		p.Timezone = *patch.Timezone
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	if patch.Notifications != nil {
		p.Notifications = *patch.Notifications
	}
}

// User is the stored account record. PasswordHash never leaves the service;
// clients only ever see Public().
type User struct {
	ID                      string             `json:"id"`
	Email                   string             `json:"email"`
	Name                    string             `json:"name"`
	Phone                   string             `json:"phone,omitempty"`
	PasswordHash            string             `json:"passwordHash"`
	Locale                  Locale             `json:"locale"`
	Subscription            Plan               `json:"subscription"`
	SubscriptionStatus      SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionActivatedAt *time.Time         `json:"subscriptionActivatedAt,omitempty"`
	SubscriptionExpiresAt   *time.Time         `json:"subscriptionExpiresAt,omitempty"`
	TrialDaysLeft           int                `json:"trialDaysLeft"`
	IsTrialActive           bool               `json:"isTrialActive"`
	Features                []string           `json:"features"`
	Usage                   Usage              `json:"usage"`
	Preferences             Preferences        `json:"preferences"`
	CreatedAt               time.Time          `json:"createdAt"`
	UpdatedAt               time.Time          `json:"updatedAt"`
	LastLoginAt             *time.Time         `json:"lastLoginAt,omitempty"`
	EmailVerified           bool               `json:"emailVerified"`
}

// NewUser builds a free-tier account with a fresh trial window.
// Email is normalized; phone is stored without whitespace.
func NewUser(email, name, phone, passwordHash string, locale Locale) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if locale == "" {
		locale = DefaultLocale
	}
	now := time.Now().UTC()
	return &User{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		Phone:              NormalizePhone(phone),
		PasswordHash:       passwordHash,
		Locale:             locale,
		Subscription:       PlanFree,
		SubscriptionStatus: SubscriptionStatusActive,
		TrialDaysLeft:      initialTrialDays,
		IsTrialActive:      true,
		Features:           PlanFree.Features(),
		Preferences: Preferences{
			Language:      string(locale),
			Timezone:      DefaultTimezone,
			Currency:      DefaultCurrency,
			Notifications: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) Touch() { u.UpdatedAt = time.Now().UTC() }

func (u *User) MarkLogin(at time.Time) {
	at = at.UTC()
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// ApplyPlan overwrites the entitlement fields from a subscription record.
// Applying the same subscription twice leaves the user unchanged apart from UpdatedAt.
func (u *User) ApplyPlan(s *Subscription) {
	act, exp := s.ActivatedAt, s.ExpiresAt
	u.Subscription = s.Plan
	u.SubscriptionStatus = s.Status
	u.SubscriptionActivatedAt = &act
	u.SubscriptionExpiresAt = &exp
	u.Features = append([]string(nil), s.Features...)
	u.Touch()
}

// LapseAt drops a paid plan whose period has ended back to free-tier limits
// and features, with status inactive. It reports whether u changed. Records
// written without an expiry fall back to the default period from activation.
func (u *User) LapseAt(now time.Time) bool {
	if u.Subscription == PlanFree || u.SubscriptionStatus != SubscriptionStatusActive {
		return false
	}
	var exp time.Time
	switch {
	case u.SubscriptionExpiresAt != nil:
		exp = *u.SubscriptionExpiresAt
	case u.SubscriptionActivatedAt != nil:
		exp = u.SubscriptionActivatedAt.Add(DefaultSubscriptionPeriod)
	default:
		return false
	}
	if now.Before(exp) {
		return false
	}
	u.Subscription = PlanFree
	u.SubscriptionStatus = SubscriptionStatusInactive
	u.Features = PlanFree.Features()
	return true
}

// PublicUser is the client-facing projection of User.
type PublicUser struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Phone              string             `json:"phone,omitempty"`
	Locale             Locale             `json:"locale"`
	Subscription       Plan               `json:"subscription"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	ExpiresAt          *time.Time         `json:"subscriptionExpiresAt,omitempty"`
	TrialDaysLeft      int                `json:"trialDaysLeft"`
	IsTrialActive      bool               `json:"isTrialActive"`
	Features           []string           `json:"features"`
	Usage              Usage              `json:"usage"`
	Preferences        Preferences        `json:"preferences"`
	CreatedAt          time.Time          `json:"createdAt"`
	LastLoginAt        *time.Time         `json:"lastLoginAt,omitempty"`
	EmailVerified      bool               `json:"emailVerified"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Phone:              u.Phone,
		Locale:             u.Locale,
		Subscription:       u.Subscription,
		SubscriptionStatus: u.SubscriptionStatus,
		ExpiresAt:          u.SubscriptionExpiresAt,
		TrialDaysLeft:      u.TrialDaysLeft,
		IsTrialActive:      u.IsTrialActive,
		Features:           append([]string(nil), u.Features...),
		Usage:              u.Usage,
		Preferences:        u.Preferences,
		CreatedAt:          u.CreatedAt,
		LastLoginAt:        u.LastLoginAt,
		EmailVerified:      u.EmailVerified,
	}
}
