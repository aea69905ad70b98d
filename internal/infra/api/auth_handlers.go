package api

import (
	"errors"
	"net/http"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/usecase"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Locale   string `json:"locale"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      model.PublicUser `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type verifyResponse struct {
	User    model.PublicUser `json:"user"`
	IsValid bool             `json:"isValid"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errs.from(w, r, err, "REGISTRATION_ERROR")
		return
	}
	res, err := s.auth.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Phone:    req.Phone,
		Locale:   model.ParseLocale(req.Locale, localeFrom(r.Context())),
	})
	if err != nil {
		s.errs.from(w, r, err, "REGISTRATION_ERROR")
		return
	}
	s.cookies.set(w, res.Token, res.ExpiresAt)
	writeData(w, http.StatusOK, authResponse{User: res.User.Public(), Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errs.from(w, r, err, "LOGIN_ERROR")
		return
	}
	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.errs.from(w, r, err, "LOGIN_ERROR")
		return
	}
	s.cookies.set(w, res.Token, res.ExpiresAt)
	writeData(w, http.StatusOK, authResponse{User: res.User.Public(), Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// handleLogout only clears the cookie; tokens are stateless.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.clear(w)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: s.errs.catalog.T(localeFrom(r.Context()), "LOGGED_OUT"),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.auth.Refresh(r.Context(), s.cookies.token(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoToken), errors.Is(err, domain.ErrUserNotFound):
			s.errs.from(w, r, err, "REFRESH_ERROR")
		default:
			s.errs.code(w, r, http.StatusUnauthorized, "REFRESH_ERROR")
		}
		return
	}
	s.cookies.set(w, res.Token, res.ExpiresAt)
	writeData(w, http.StatusOK, tokenResponse{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Verify(r.Context(), s.cookies.token(r))
	if err != nil {
		s.errs.from(w, r, err, "INTERNAL_ERROR")
		return
	}
	writeData(w, http.StatusOK, verifyResponse{User: user.Public(), IsValid: true})
}
