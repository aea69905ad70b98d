package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
)

type createSessionRequest struct {
	PlanType      string          `json:"planType"`
	PaymentMethod string          `json:"paymentMethod"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	MobileNumber  string          `json:"mobileNumber"`
}

type paymentStatusResponse struct {
	SessionID     string              `json:"sessionId"`
	Status        model.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	PlanType      model.Plan          `json:"planType"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	ExpiresAt     time.Time           `json:"expiresAt"`
	ResolvedAt    *time.Time          `json:"resolvedAt,omitempty"`
}

type webhookAck struct {
	Received bool   `json:"received"`
	Applied  bool   `json:"applied"`
	Reason   string `json:"reason,omitempty"`
}

// pathParam binds a simple-style path segment.
func pathParam(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), dest)
	if err != nil {
		return errors.Join(errInvalidJSON, err)
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errs.from(w, r, err, "PAYMENT_SESSION_ERROR")
		return
	}
	// checkout always settles in SAR; a client currency is informational only
	if req.Currency != "" && !strings.EqualFold(req.Currency, model.CurrencySAR) {
		l := logging.With(r.Context(), s.log)
		l.Debug().Str("currency", req.Currency).Msg("client currency ignored")
	}

	in := usecase.CreateSessionInput{
		Plan:     req.PlanType,
		Method:   req.PaymentMethod,
		Amount:   req.Amount,
		Locale:   localeFrom(r.Context()),
		Metadata: requestMetadata(r, s.cfg.HTTP.TrustProxy),
	}
	in.Metadata.Mobile = req.MobileNumber
	if c := claimsFrom(r.Context()); c != nil {
		in.UserID = c.UserID
		if c.Locale != "" {
			in.Locale = c.Locale
		}
	}

	res, err := s.payments.CreateSession(r.Context(), in)
	if err != nil {
		s.errs.from(w, r, err, "PAYMENT_SESSION_ERROR")
		return
	}

	data := make(map[string]any, len(res.Checkout)+6)
	for k, v := range res.Checkout {
		data[k] = v
	}
	data["sessionId"] = res.Session.ID
	data["expiresAt"] = res.Session.ExpiresAt
	data["status"] = res.Session.Status
	data["paymentMethod"] = res.Session.Method
	data["amount"] = res.Session.Amount
	data["currency"] = res.Session.Currency
	writeData(w, http.StatusOK, data)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "sessionId", &id); err != nil {
		s.errs.from(w, r, err, "PAYMENT_STATUS_ERROR")
		return
	}
	ps, err := s.payments.GetStatus(r.Context(), id)
	if err != nil {
		s.errs.from(w, r, err, "PAYMENT_STATUS_ERROR")
		return
	}
	writeData(w, http.StatusOK, paymentStatusResponse{
		SessionID:     ps.ID,
		Status:        ps.Status,
		Amount:        ps.Amount,
		Currency:      ps.Currency,
		PaymentMethod: ps.Method,
		PlanType:      ps.Plan,
		CreatedAt:     ps.CreatedAt,
		UpdatedAt:     ps.UpdatedAt,
		ExpiresAt:     ps.ExpiresAt,
		ResolvedAt:    ps.ResolvedAt,
	})
}

// handleWebhook acknowledges every verified callback with 200, applied or not.
// Only storage failures answer 500 so the provider retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var provider string
	if err := pathParam(r, "provider", &provider); err != nil {
		s.errs.from(w, r, err, "WEBHOOK_ERROR")
		return
	}
	header, err := s.payments.SignatureHeader(provider)
	if err != nil {
		s.errs.from(w, r, err, "WEBHOOK_ERROR")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errs.from(w, r, errors.Join(errInvalidJSON, err), "WEBHOOK_ERROR")
		return
	}

	out, err := s.payments.HandleWebhook(r.Context(), provider, body, webhookSignature(r, header))
	if err != nil {
		s.errs.from(w, r, err, "WEBHOOK_ERROR")
		return
	}
	writeData(w, http.StatusOK, webhookAck{Received: true, Applied: out.Applied, Reason: out.Reason})
}

func webhookSignature(r *http.Request, header string) string {
	if sig := r.Header.Get(header); sig != "" {
		return sig
	}
	if sig := r.Header.Get("X-Signature"); sig != "" {
		return sig
	}
	auth := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return auth
}
