package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"idea-to-market/internal/config"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/domain/ports/repository"
	pg "idea-to-market/internal/infra/db/postgres"
	"idea-to-market/internal/infra/logging"
	red "idea-to-market/internal/infra/redis"
	"idea-to-market/internal/infra/security"
	"idea-to-market/internal/usecase"
)

type globalOpts struct {
	configPath string
	dev        bool
}

// env holds the stores a command talks to. Close releases them.
type env struct {
	cfg      *config.Config
	log      *zerolog.Logger
	redis    *red.Client
	sessions repository.PaymentSessionRepository
	subs     usecase.SubscriptionUseCase
	audit    usecase.AuditUseCase
	closers  []func()
}

// openEnv connects to redis and, when configured, to the ledger database.
func openEnv(ctx context.Context, opts *globalOpts) (*env, error) {
	cfg, err := config.LoadConfig(opts.configPath, opts.dev)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Log.Format = "console"
	e := &env{cfg: cfg, log: logging.New(cfg.Log, true)}

	e.redis, err = red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	e.closers = append(e.closers, func() { _ = e.redis.Close() })

	var (
		ledger repository.PaymentLedgerRepository
		txm    repository.TransactionManager
	)
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		e.closers = append(e.closers, pool.Close)

		var sealer pg.PayloadSealer
		if key := cfg.Security.EncryptionKey; key != "" {
			enc, err := security.NewEncryptionService(key)
			if err != nil {
				e.Close()
				return nil, fmt.Errorf("encryption: %w", err)
			}
			sealer = enc
		}
		ledger = pg.NewPaymentLedgerRepo(pool, sealer)
		txm = pg.NewTxManager(pool)
	}

	users := red.NewUserRepo(e.redis)
	e.sessions = red.NewPaymentSessionRepo(e.redis)
	e.audit = usecase.NewAuditUseCase(ledger, txm, e.log)
	events := eventWriter{events: red.NewEventRepo(e.redis, cfg.Analytics.MaxEvents), log: e.log}
	e.subs = usecase.NewSubscriptionUseCase(red.NewSubscriptionRepo(e.redis), users, red.NewLocker(e.redis), events, cfg.Subscription.Period, e.log)
	return e, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// eventWriter appends analytics events inline; a one-shot command has no worker pool.
type eventWriter struct {
	events repository.EventRepository
	log    *zerolog.Logger
}

func (w eventWriter) Emit(ctx context.Context, name, userID string, locale model.Locale, props map[string]any) {
	ev, err := model.NewEvent(name, userID, locale, props, time.Now())
	if err == nil {
		err = w.events.Append(ctx, ev)
	}
	if err != nil {
		w.log.Warn().Err(err).Str("event", name).Msg("analytics event dropped")
	}
}
