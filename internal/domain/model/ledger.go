package model

import (
	"encoding/json"
	"time"
)

// LedgerStatusAbandoned is only ever written to the durable ledger, never to the KV record.
const LedgerStatusAbandoned = "abandoned"

// LedgerEntry is the durable copy of a payment session. It outlives the KV record.
type LedgerEntry struct {
	SessionID  string
	UserID     string
	Plan       Plan
	Method     PaymentMethod
	Amount     string
	Currency   string
	Status     string
	Locale     Locale
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ResolvedAt *time.Time
	UpdatedAt  time.Time
}

func LedgerEntryFromSession(s *PaymentSession) *LedgerEntry {
	return &LedgerEntry{
		SessionID:  s.ID,
		UserID:     s.UserID,
		Plan:       s.Plan,
		Method:     s.Method,
		Amount:     s.Amount.StringFixed(2),
		Currency:   s.Currency,
		Status:     string(s.Status),
		Locale:     s.Locale,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		ResolvedAt: s.ResolvedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// WebhookRecord is one verified provider callback as received.
type WebhookRecord struct {
	ID         string
	SessionID  string
	Provider   string
	Status     PaymentStatus
	Payload    json.RawMessage
	ReceivedAt time.Time
}
