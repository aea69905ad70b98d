package model

import (
	"time"

	"idea-to-market/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// DefaultSubscriptionPeriod is how long a paid plan stays active after activation.
const DefaultSubscriptionPeriod = 30 * 24 * time.Hour

// Subscription mirrors the entitlement fields of a user record. It is written
// before the user record during activation.
type Subscription struct {
	UserID      string             `json:"userId"`
	Plan        Plan               `json:"planType"`
	Status      SubscriptionStatus `json:"status"`
	ActivatedAt time.Time          `json:"activatedAt"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	Features    []string           `json:"features"`
}

func NewSubscription(userID string, plan Plan, activatedAt time.Time, period time.Duration) (*Subscription, error) {
	if userID == "" || !plan.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if period <= 0 {
		period = DefaultSubscriptionPeriod
	}
	activatedAt = activatedAt.UTC()
	return &Subscription{
		UserID:      userID,
		Plan:        plan,
		Status:      SubscriptionStatusActive,
		ActivatedAt: activatedAt,
		ExpiresAt:   activatedAt.Add(period),
		Features:    plan.Features(),
	}, nil
}

func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && t.Before(s.ExpiresAt)
}

// AppliedTo reports whether u already carries this subscription's entitlements.
func (s *Subscription) AppliedTo(u *User) bool {
	if s == nil || u == nil || u.SubscriptionActivatedAt == nil {
		return false
	}
	return u.Subscription == s.Plan &&
		u.SubscriptionStatus == s.Status &&
		u.SubscriptionActivatedAt.Equal(s.ActivatedAt)
}
