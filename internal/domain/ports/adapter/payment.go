package adapter

import (
	"context"
	"encoding/json"

	"idea-to-market/internal/domain/model"
)

// WebhookEvent is a provider callback mapped onto the internal vocabulary.
type WebhookEvent struct {
	SessionID   string
	Status      model.PaymentStatus
	ProviderRef string
	Raw         json.RawMessage
}

// PaymentProvider is the port every checkout method implements.
type PaymentProvider interface {
	Method() model.PaymentMethod
	// WebhookName is the path segment the provider calls back on.
	WebhookName() string
	// SignatureHeader is the header carrying the provider's signature.
	SignatureHeader() string

	// BuildRequest maps a session onto the provider's request shape without side effects.
	BuildRequest(s *model.PaymentSession) (map[string]any, error)
	// Checkout returns the payload handed back to the client, calling the provider if required.
	Checkout(ctx context.Context, s *model.PaymentSession) (map[string]any, error)

	// VerifyWebhook never panics; malformed input is simply not verified.
	VerifyWebhook(signature string, body []byte) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// ProviderRegistry is the single dispatch point from method or webhook name to provider.
type ProviderRegistry interface {
	ForMethod(m model.PaymentMethod) (PaymentProvider, error)
	ForWebhook(name string) (PaymentProvider, error)
}
