package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/ports/adapter"
	"idea-to-market/internal/infra/logging"
)

const defaultCookieName = "auth-token"

// Authenticator is the slice of the auth use case the middleware needs.
type Authenticator interface {
	Authenticate(token string) (*adapter.TokenClaims, error)
}

// cookies sets and clears the auth-token cookie.
type cookies struct {
	name   string
	domain string
	secure bool
	ttl    time.Duration
}

func newCookies(cfg config.AuthConfig) cookies {
	name := cfg.CookieName
	if name == "" {
		name = defaultCookieName
	}
	return cookies{name: name, domain: cfg.CookieDomain, secure: cfg.SecureCookie, ttl: cfg.TokenTTL}
}

func (c cookies) set(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(c.ttl.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// token reads the bearer header first, then the cookie.
func (c cookies) token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if ck, err := r.Cookie(c.name); err == nil {
		return ck.Value
	}
	return ""
}

// requireAuth rejects requests without a valid token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return s.authenticate(next, false)
}

// optionalAuth lets anonymous requests through but still rejects a bad token.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return s.authenticate(next, true)
}

func (s *Server) authenticate(next http.Handler, anonymous bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := s.cookies.token(r)
		if tok == "" && anonymous {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.auth.Authenticate(tok)
		if err != nil {
			if errors.Is(err, domain.ErrNoToken) {
				s.errs.code(w, r, http.StatusUnauthorized, "NO_TOKEN")
				return
			}
			s.errs.code(w, r, http.StatusUnauthorized, "INVALID_TOKEN")
			return
		}
		ctx := withClaims(r.Context(), claims)
		ctx = logging.WithUserID(ctx, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
