package payment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
)

const stripeWebhookName = "stripe"

var (
	_ adapter.PaymentProvider = (*ApplePayProvider)(nil)
	_ adapter.PaymentProvider = (*GooglePayProvider)(nil)
)

// stripeWebhooks is shared by the wallet methods: Apple Pay and Google Pay tokens
// are settled through Stripe, which signs its callbacks with Stripe-Signature.
type stripeWebhooks struct {
	secret    string
	tolerance time.Duration
}

func (stripeWebhooks) WebhookName() string     { return stripeWebhookName }
func (stripeWebhooks) SignatureHeader() string { return "Stripe-Signature" }

func (w stripeWebhooks) VerifyWebhook(signature string, body []byte) bool {
	if w.secret == "" || signature == "" {
		return false
	}
	return webhook.ValidatePayloadWithTolerance(body, signature, w.secret, w.tolerance) == nil
}

func (stripeWebhooks) ParseWebhook(body []byte) (*adapter.WebhookEvent, error) {
	var ev struct {
		Type        string `json:"type"`
		OrderID     string `json:"order_id"`
		ReferenceID string `json:"reference_id"`
		Data        struct {
			Object struct {
				ID       string            `json:"id"`
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, domain.ErrMalformedWebhook
	}
	var status model.PaymentStatus
	switch ev.Type {
	case "payment_intent.succeeded":
		status = model.PaymentStatusCompleted
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = model.PaymentStatusFailed
	default:
		// informational events (created, processing, ...) leave the session alone
		status = ""
	}
	md := ev.Data.Object.Metadata
	return &adapter.WebhookEvent{
		SessionID:   firstNonEmpty(ev.OrderID, ev.ReferenceID, md["session_id"], md["order_id"]),
		Status:      status,
		ProviderRef: ev.Data.Object.ID,
		Raw:         json.RawMessage(body),
	}, nil
}

// ApplePayProvider returns the Apple Pay JS session the browser starts.
type ApplePayProvider struct {
	stripeWebhooks
	merchantID string
	links      Links
}

func NewApplePayProvider(cfg config.ProviderConfig, stripe config.ProviderConfig, tolerance time.Duration, links Links) *ApplePayProvider {
	return &ApplePayProvider{
		stripeWebhooks: stripeWebhooks{secret: stripe.WebhookSecret, tolerance: tolerance},
		merchantID:     cfg.MerchantID,
		links:          links,
	}
}

func (p *ApplePayProvider) Method() model.PaymentMethod { return model.PaymentMethodApplePay }

func (p *ApplePayProvider) BuildRequest(s *model.PaymentSession) (map[string]any, error) {
	return map[string]any{
		"applePaySession": map[string]any{
			"countryCode":          "SA",
			"currencyCode":         s.Currency,
			"supportedNetworks":    []string{"visa", "masterCard", "mada"},
			"merchantCapabilities": []string{"supports3DS"},
			"total": map[string]any{
				"label":  p.links.label(s.Plan),
				"amount": s.Amount.StringFixed(2),
			},
		},
		"merchantIdentifier": p.merchantID,
	}, nil
}

func (p *ApplePayProvider) Checkout(_ context.Context, s *model.PaymentSession) (map[string]any, error) {
	return p.BuildRequest(s)
}

// GooglePayProvider returns the Google Pay PaymentDataRequest the browser starts.
type GooglePayProvider struct {
	stripeWebhooks
	merchantID string
	links      Links
}

func NewGooglePayProvider(cfg config.ProviderConfig, stripe config.ProviderConfig, tolerance time.Duration, links Links) *GooglePayProvider {
	return &GooglePayProvider{
		stripeWebhooks: stripeWebhooks{secret: stripe.WebhookSecret, tolerance: tolerance},
		merchantID:     cfg.MerchantID,
		links:          links,
	}
}

func (p *GooglePayProvider) Method() model.PaymentMethod { return model.PaymentMethodGooglePay }

func (p *GooglePayProvider) BuildRequest(s *model.PaymentSession) (map[string]any, error) {
	merchant := map[string]any{"merchantName": p.links.MerchantName}
	if id := strings.TrimSpace(p.merchantID); id != "" {
		merchant["merchantId"] = id
	}
	return map[string]any{
		"googlePaySession": map[string]any{
			"apiVersion":      2,
			"apiVersionMinor": 0,
			"allowedPaymentMethods": []map[string]any{{
				"type": "CARD",
				"parameters": map[string]any{
					"allowedAuthMethods":  []string{"PAN_ONLY", "CRYPTOGRAM_3DS"},
					"allowedCardNetworks": []string{"VISA", "MASTERCARD"},
				},
			}},
			"transactionInfo": map[string]any{
				"totalPriceStatus": "FINAL",
				"totalPrice":       s.Amount.StringFixed(2),
				"currencyCode":     s.Currency,
				"countryCode":      "SA",
			},
			"merchantInfo": merchant,
		},
	}, nil
}

func (p *GooglePayProvider) Checkout(_ context.Context, s *model.PaymentSession) (map[string]any, error) {
	return p.BuildRequest(s)
}

// NewDefaultRegistry wires every supported method from configuration.
func NewDefaultRegistry(cfg config.PaymentConfig) *Registry {
	links := Links{FrontendURL: cfg.FrontendURL, APIBaseURL: cfg.APIBaseURL, MerchantName: cfg.MerchantName}
	client := defaultHTTPClient(cfg.ProviderTimeout)
	return NewRegistry(
		NewMadaProvider(cfg.Mada, links, client),
		NewSTCPayProvider(cfg.STCPay, links, client),
		NewApplePayProvider(cfg.ApplePay, cfg.Stripe, cfg.WebhookTolerance, links),
		NewGooglePayProvider(cfg.GooglePay, cfg.Stripe, cfg.WebhookTolerance, links),
	)
}
