package payment

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*MadaProvider)(nil)

// MadaProvider handles Saudi debit card checkout. Webhooks are signed with a
// hex-encoded HMAC-SHA256 of the raw body in X-Signature.
type MadaProvider struct {
	cfg    config.ProviderConfig
	links  Links
	client *http.Client
}

func NewMadaProvider(cfg config.ProviderConfig, links Links, client *http.Client) *MadaProvider {
	if client == nil {
		client = defaultHTTPClient(0)
	}
	return &MadaProvider{cfg: cfg, links: links, client: client}
}

func (p *MadaProvider) Method() model.PaymentMethod { return model.PaymentMethodMada }
func (p *MadaProvider) WebhookName() string         { return "mada" }
func (p *MadaProvider) SignatureHeader() string     { return "X-Signature" }

func (p *MadaProvider) BuildRequest(s *model.PaymentSession) (map[string]any, error) {
	return map[string]any{
		"merchant_id": p.cfg.MerchantID,
		"amount":      s.MinorUnits(),
		"currency":    s.Currency,
		"order_id":    s.ID,
		"description": p.links.label(s.Plan),
		"return_url":  p.links.successURL(),
		"cancel_url":  p.links.cancelURL(),
		"webhook_url": p.links.webhookURL(p.WebhookName()),
		"customer_info": map[string]any{
			"locale": s.Locale,
		},
	}, nil
}

func (p *MadaProvider) Checkout(ctx context.Context, s *model.PaymentSession) (map[string]any, error) {
	req, err := p.BuildRequest(s)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIURL == "" {
		return map[string]any{"paymentRequest": req}, nil
	}
	var out struct {
		PaymentURL string `json:"payment_url"`
		PaymentID  string `json:"payment_id"`
	}
	url := strings.TrimRight(p.cfg.APIURL, "/") + "/payments"
	if err := postJSON(ctx, p.client, string(p.Method()), url, p.cfg.APIKey, s.Locale.Language(), req, &out); err != nil {
		return nil, err
	}
	return map[string]any{"paymentUrl": out.PaymentURL, "paymentId": out.PaymentID}, nil
}

// VerifyWebhook decodes the header as hex (either case, surrounding space
// trimmed) and compares the resulting digest in constant time. A header that
// carries the raw digest bytes instead of their hex form is rejected.
func (p *MadaProvider) VerifyWebhook(signature string, body []byte) bool {
	if p.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256(p.cfg.WebhookSecret, body))
}

func (p *MadaProvider) ParseWebhook(body []byte) (*adapter.WebhookEvent, error) {
	var ev struct {
		OrderID     string `json:"order_id"`
		ReferenceID string `json:"reference_id"`
		Status      string `json:"status"`
		PaymentID   string `json:"payment_id"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, domain.ErrMalformedWebhook
	}
	status := model.PaymentStatusFailed
	if ev.Status == "completed" {
		status = model.PaymentStatusCompleted
	}
	return &adapter.WebhookEvent{
		SessionID:   firstNonEmpty(ev.OrderID, ev.ReferenceID),
		Status:      status,
		ProviderRef: ev.PaymentID,
		Raw:         json.RawMessage(body),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
