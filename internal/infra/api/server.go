package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"idea-to-market/internal/config"
	"idea-to-market/internal/infra/i18n"
	"idea-to-market/internal/infra/metrics"
	"idea-to-market/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Auth      usecase.AuthUseCase
	Payments  usecase.PaymentUseCase
	Users     usecase.UserUseCase
	Analytics usecase.AnalyticsUseCase
	Limiter   RateLimiter
	Store     Pinger
	Catalog   *i18n.Catalog
	Version   string
}

// Server exposes the auth, payment, user and analytics routes.
type Server struct {
	cfg       *config.Config
	auth      usecase.AuthUseCase
	payments  usecase.PaymentUseCase
	users     usecase.UserUseCase
	analytics usecase.AnalyticsUseCase
	limiter   RateLimiter
	store     Pinger
	version   string
	cookies   cookies
	errs      *errorWriter
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Server {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = i18n.MustDefaultCatalog()
	}
	s := &Server{
		cfg:       cfg,
		auth:      deps.Auth,
		payments:  deps.Payments,
		users:     deps.Users,
		analytics: deps.Analytics,
		limiter:   deps.Limiter,
		store:     deps.Store,
		version:   deps.Version,
		cookies:   newCookies(cfg.Auth),
		errs:      &errorWriter{catalog: catalog, log: logger},
		log:       logger,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return s
}

// Handler builds the router. Every route is served at the root and under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		Recover(s.log, s.errs),
		TraceID(),
		Locale(),
		RequestLog(s.log),
		CORS(s.cfg.HTTP.CORSOrigins),
		BodyLimit(maxBodyBytes),
	)
	if s.cfg.HTTP.RequestTimeout > 0 {
		r.Use(Timeout(s.cfg.HTTP.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.errs.code(w, req, http.StatusNotFound, "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		s.errs.code(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	})

	r.Handle("/metrics", metrics.Handler())
	s.routes(r)
	r.Route("/api", s.routes)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Post("/payments/webhook/{provider}", s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.limiter, s.cfg.HTTP.RateLimit, s.cfg.HTTP.RateLimitWindow, s.cfg.HTTP.TrustProxy, s.log, s.errs))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/verify", s.handleVerify)
		})

		r.Route("/payments", func(r chi.Router) {
			if s.cfg.Payment.AllowAnonymous {
				r.With(s.optionalAuth).Post("/create-session", s.handleCreateSession)
			} else {
				r.With(s.requireAuth).Post("/create-session", s.handleCreateSession)
			}
			r.Get("/status/{sessionId}", s.handlePaymentStatus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Get("/usage", s.handleGetUsage)
			r.Post("/usage/{feature}", s.handleRecordUsage)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.With(s.optionalAuth).Post("/track", s.handleTrack)
			r.With(s.requireAuth).Get("/dashboard", s.handleDashboard)
		})
	})
}

func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.HTTP.Port).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
	Redis     string `json:"redis"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339), Version: s.version, Redis: "up"}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			res.Status = "degraded"
			res.Redis = "down"
			writeData(w, http.StatusServiceUnavailable, res)
			return
		}
	}
	writeData(w, http.StatusOK, res)
}
