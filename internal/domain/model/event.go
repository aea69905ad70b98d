package model

import (
	"crypto/rand"
	"strings"
	"time"

	"idea-to-market/internal/domain"

	"github.com/oklog/ulid/v2"
)

const AnonymousUser = "anonymous"

const (
	EventUserRegistered        = "user_registered"
	EventUserLoggedIn          = "user_logged_in"
	EventPaymentInitiated      = "payment_initiated"
	EventPaymentCompleted      = "payment_completed"
	EventPaymentFailed         = "payment_failed"
	EventSubscriptionActivated = "subscription_activated"
)

// Event is an analytics data point. IDs are ULIDs so they sort by time.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"event"`
	UserID     string         `json:"userId"`
	Locale     Locale         `json:"locale"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func NewEvent(name, userID string, locale Locale, props map[string]any, at time.Time) (*Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrMissingEvent
	}
	if userID == "" {
		userID = AnonymousUser
	}
	if locale == "" {
		locale = DefaultLocale
	}
	at = at.UTC()
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:         id.String(),
		Name:       name,
		UserID:     userID,
		Locale:     locale,
		Properties: props,
		Timestamp:  at,
	}, nil
}
