// File: internal/infra/adapters/payment/provider.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
)

var _ adapter.ProviderRegistry = (*Registry)(nil)

// Links are the public URLs providers redirect to and call back on.
type Links struct {
	FrontendURL  string
	APIBaseURL   string
	MerchantName string
}

func (l Links) successURL() string { return l.FrontendURL + "/payment/success" }
func (l Links) cancelURL() string  { return l.FrontendURL + "/payment/cancel" }
func (l Links) webhookURL(name string) string {
	return fmt.Sprintf("%s/api/payments/webhook/%s", l.APIBaseURL, name)
}

func (l Links) label(plan model.Plan) string {
	return fmt.Sprintf("%s - %s Plan", l.MerchantName, plan)
}

// Registry is the only place a payment method or webhook name is turned into a provider.
type Registry struct {
	byMethod  map[model.PaymentMethod]adapter.PaymentProvider
	byWebhook map[string]adapter.PaymentProvider
}

func NewRegistry(providers ...adapter.PaymentProvider) *Registry {
	r := &Registry{
		byMethod:  make(map[model.PaymentMethod]adapter.PaymentProvider, len(providers)),
		byWebhook: make(map[string]adapter.PaymentProvider, len(providers)),
	}
	for _, p := range providers {
		r.byMethod[p.Method()] = p
		// wallets share one webhook endpoint; the first registration wins
		if _, ok := r.byWebhook[p.WebhookName()]; !ok {
			r.byWebhook[p.WebhookName()] = p
		}
	}
	return r
}

func (r *Registry) ForMethod(m model.PaymentMethod) (adapter.PaymentProvider, error) {
	p, ok := r.byMethod[m]
	if !ok {
		return nil, domain.ErrUnsupportedPaymentMethod
	}
	return p, nil
}

func (r *Registry) ForWebhook(name string) (adapter.PaymentProvider, error) {
	p, ok := r.byWebhook[name]
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	return p, nil
}

func hmacSHA256(secret string, parts ...[]byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}
