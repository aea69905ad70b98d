// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain/ports/repository"
	payAdapters "idea-to-market/internal/infra/adapters/payment"
	"idea-to-market/internal/infra/api"
	pg "idea-to-market/internal/infra/db/postgres"
	"idea-to-market/internal/infra/i18n"
	"idea-to-market/internal/infra/logging"
	"idea-to-market/internal/infra/metrics"
	red "idea-to-market/internal/infra/redis"
	"idea-to-market/internal/infra/sched"
	"idea-to-market/internal/infra/security"
	"idea-to-market/internal/infra/worker"
	"idea-to-market/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, optional config file)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis (users, sessions, subscriptions, events) ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	userRepo := red.NewUserRepo(redisClient)
	sessionRepo := red.NewPaymentSessionRepo(redisClient)
	subRepo := red.NewSubscriptionRepo(redisClient)
	eventRepo := red.NewEventRepo(redisClient, cfg.Analytics.MaxEvents)
	locker := red.NewLocker(redisClient)

	// ---- Postgres payment ledger (optional) ----
	var (
		ledger repository.PaymentLedgerRepository
		txm    repository.TransactionManager
		pool   *pgxpool.Pool
	)
	if cfg.Database.URL != "" {
		pool, err = pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}

		var sealer pg.PayloadSealer
		if key := cfg.Security.EncryptionKey; key != "" {
			enc, err := security.NewEncryptionService(key)
			if err != nil {
				return fmt.Errorf("encryption: %w", err)
			}
			sealer = enc
		} else {
			logger.Warn().Msg("security.encryption_key not set; webhook payloads stored in plaintext")
		}
		ledger = pg.NewPaymentLedgerRepo(pool, sealer)
		txm = pg.NewTxManager(pool)
	} else {
		logger.Info().Msg("database.url not set; payment ledger disabled")
	}

	// ---- Security ----
	tokens, err := security.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	// ---- Analytics workers ----
	jobs := worker.NewPool("analytics", cfg.Analytics.Workers, cfg.Analytics.Workers*256, logger)
	jobs.Start(context.WithoutCancel(ctx))
	defer jobs.Stop()

	// ---- Use cases ----
	analyticsUC := usecase.NewAnalyticsUseCase(eventRepo, userRepo, subRepo, jobs, logger)
	auditUC := usecase.NewAuditUseCase(ledger, txm, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, userRepo, locker, analyticsUC, cfg.Subscription.Period, logger)
	authUC := usecase.NewAuthUseCase(userRepo, hasher, tokens, locker, analyticsUC, logger).WithDevMode(cfg.Runtime.Dev)
	userUC := usecase.NewUserUseCase(userRepo, locker, logger)
	paymentUC := usecase.NewPaymentUseCase(sessionRepo, locker, payAdapters.NewDefaultRegistry(cfg.Payment), subUC, auditUC, analyticsUC, cfg.Payment.SessionTTL, logger)

	// ---- Abandoned-session sweeper ----
	if ledger != nil {
		sweeper := sched.NewAbandonedSweeper(auditUC, pool, cfg.Scheduler.SweepInterval, cfg.Payment.WebhookTolerance, logger)
		go sweeper.Start(ctx)
	}

	// ---- HTTP ----
	srv := api.NewServer(cfg, api.Deps{
		Auth:      authUC,
		Payments:  paymentUC,
		Users:     userUC,
		Analytics: analyticsUC,
		Limiter:   red.NewRateLimiter(redisClient),
		Store:     redisClient,
		Catalog:   i18n.MustDefaultCatalog(),
		Version:   version,
	}, logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	// ---- Graceful shutdown ----
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
