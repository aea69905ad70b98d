package payment

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*STCPayProvider)(nil)

// STCPayProvider handles STC Pay wallet checkout. Webhook signatures are the
// base64 HMAC-SHA256 of the raw body.
type STCPayProvider struct {
	cfg    config.ProviderConfig
	links  Links
	client *http.Client
}

func NewSTCPayProvider(cfg config.ProviderConfig, links Links, client *http.Client) *STCPayProvider {
	if client == nil {
		client = defaultHTTPClient(0)
	}
	return &STCPayProvider{cfg: cfg, links: links, client: client}
}

func (p *STCPayProvider) Method() model.PaymentMethod { return model.PaymentMethodSTCPay }
func (p *STCPayProvider) WebhookName() string         { return "stc_pay" }
func (p *STCPayProvider) SignatureHeader() string     { return "X-Signature" }

func (p *STCPayProvider) BuildRequest(s *model.PaymentSession) (map[string]any, error) {
	req := map[string]any{
		"merchant_id":  p.cfg.MerchantID,
		"amount":       json.Number(s.Amount.StringFixed(2)),
		"currency":     s.Currency,
		"reference_id": s.ID,
		"description":  fmt.Sprintf("من الفكرة إلى السوق - خطة %s", s.Plan),
		"success_url":  p.links.successURL(),
		"cancel_url":   p.links.cancelURL(),
		"webhook_url":  p.links.webhookURL(p.WebhookName()),
	}
	if s.Metadata.Mobile != "" {
		req["mobile_number"] = s.Metadata.Mobile
	}
	return req, nil
}

func (p *STCPayProvider) Checkout(ctx context.Context, s *model.PaymentSession) (map[string]any, error) {
	req, err := p.BuildRequest(s)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIURL == "" {
		return map[string]any{"paymentRequest": req}, nil
	}
	var out struct {
		PaymentURL string `json:"payment_url"`
		QRCode     string `json:"qr_code"`
		PaymentID  string `json:"payment_id"`
	}
	url := strings.TrimRight(p.cfg.APIURL, "/") + "/payments"
	if err := postJSON(ctx, p.client, string(p.Method()), url, p.cfg.APIKey, "ar", req, &out); err != nil {
		return nil, err
	}
	return map[string]any{"paymentUrl": out.PaymentURL, "qrCode": out.QRCode, "paymentId": out.PaymentID}, nil
}

func (p *STCPayProvider) VerifyWebhook(signature string, body []byte) bool {
	if p.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256(p.cfg.WebhookSecret, body))
}

func (p *STCPayProvider) ParseWebhook(body []byte) (*adapter.WebhookEvent, error) {
	var ev struct {
		ReferenceID   string `json:"reference_id"`
		OrderID       string `json:"order_id"`
		PaymentStatus string `json:"payment_status"`
		PaymentID     string `json:"payment_id"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, domain.ErrMalformedWebhook
	}
	status := model.PaymentStatusFailed
	if ev.PaymentStatus == "success" {
		status = model.PaymentStatusCompleted
	}
	return &adapter.WebhookEvent{
		SessionID:   firstNonEmpty(ev.OrderID, ev.ReferenceID),
		Status:      status,
		ProviderRef: ev.PaymentID,
		Raw:         json.RawMessage(body),
	}, nil
}
