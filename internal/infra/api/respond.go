package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/adapter"
	"idea-to-market/internal/infra/i18n"
	"idea-to-market/internal/infra/logging"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	ctxLocale ctxKey = iota
	ctxClaims
)

func withLocale(ctx context.Context, l model.Locale) context.Context {
	return context.WithValue(ctx, ctxLocale, l)
}

func localeFrom(ctx context.Context) model.Locale {
	if l, ok := ctx.Value(ctxLocale).(model.Locale); ok {
		return l
	}
	return model.DefaultLocale
}

func withClaims(ctx context.Context, c *adapter.TokenClaims) context.Context {
	return context.WithValue(ctx, ctxClaims, c)
}

// claimsFrom returns nil for anonymous requests.
func claimsFrom(ctx context.Context) *adapter.TokenClaims {
	c, _ := ctx.Value(ctxClaims).(*adapter.TokenClaims)
	return c
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

type errorMapping struct {
	status int
	code   string
}

// errorTable maps domain sentinels to their wire form. Anything not listed
// falls back to the route's own code.
var errorTable = []struct {
	err     error
	mapping errorMapping
}{
	{domain.ErrMissingFields, errorMapping{http.StatusBadRequest, "MISSING_FIELDS"}},
	{domain.ErrInvalidEmail, errorMapping{http.StatusBadRequest, "INVALID_EMAIL"}},
	{domain.ErrInvalidPhone, errorMapping{http.StatusBadRequest, "INVALID_PHONE"}},
	{domain.ErrEmailExists, errorMapping{http.StatusBadRequest, "EMAIL_EXISTS"}},
	{domain.ErrMissingCredentials, errorMapping{http.StatusBadRequest, "MISSING_CREDENTIALS"}},
	{domain.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{domain.ErrUserNotFound, errorMapping{http.StatusNotFound, "USER_NOT_FOUND"}},
	{domain.ErrNoToken, errorMapping{http.StatusUnauthorized, "NO_TOKEN"}},
	{domain.ErrInvalidToken, errorMapping{http.StatusUnauthorized, "INVALID_TOKEN"}},
	{domain.ErrMissingPaymentInfo, errorMapping{http.StatusBadRequest, "MISSING_PAYMENT_INFO"}},
	{domain.ErrInvalidPlan, errorMapping{http.StatusBadRequest, "INVALID_PLAN"}},
	{domain.ErrUnsupportedPaymentMethod, errorMapping{http.StatusBadRequest, "UNSUPPORTED_PAYMENT_METHOD"}},
	{domain.ErrSessionNotFound, errorMapping{http.StatusNotFound, "SESSION_NOT_FOUND"}},
	{domain.ErrInvalidSignature, errorMapping{http.StatusUnauthorized, "INVALID_SIGNATURE"}},
	{domain.ErrUnsupportedProvider, errorMapping{http.StatusNotFound, "UNSUPPORTED_PROVIDER"}},
	{domain.ErrMalformedWebhook, errorMapping{http.StatusBadRequest, "INVALID_JSON"}},
	{domain.ErrInvalidFeature, errorMapping{http.StatusBadRequest, "INVALID_FEATURE"}},
	{domain.ErrUsageLimitReached, errorMapping{http.StatusForbidden, "USAGE_LIMIT_REACHED"}},
	{domain.ErrMissingEvent, errorMapping{http.StatusBadRequest, "MISSING_EVENT"}},
	{domain.ErrAnalyticsQueueFull, errorMapping{http.StatusServiceUnavailable, "TRACKING_ERROR"}},
	{domain.ErrLockNotAcquired, errorMapping{http.StatusConflict, "RESOURCE_BUSY"}},
	{errInvalidJSON, errorMapping{http.StatusBadRequest, "INVALID_JSON"}},
}

var errInvalidJSON = errors.New("malformed request body")

func lookupError(err error) (errorMapping, bool) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.mapping, true
		}
	}
	return errorMapping{}, false
}

// errorWriter renders the localized error envelope.
type errorWriter struct {
	catalog *i18n.Catalog
	log     *zerolog.Logger
}

// from renders a known domain error, or fallback with 500 after logging err.
func (e *errorWriter) from(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if m, ok := lookupError(err); ok {
		e.code(w, r, m.status, m.code)
		return
	}
	l := logging.With(r.Context(), e.log)
	l.Error().Err(err).Str("code", fallback).Msg("request failed")
	e.code(w, r, http.StatusInternalServerError, fallback)
}

func (e *errorWriter) code(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, envelope{
		Success: false,
		Error: &apiError{
			Message:   e.catalog.T(localeFrom(r.Context()), code),
			Code:      code,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errInvalidJSON
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		// an empty body leaves dst zeroed and is reported by field validation
		return nil
	default:
		return errors.Join(errInvalidJSON, err)
	}
}
