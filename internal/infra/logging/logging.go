// File: internal/infra/logging/logging.go
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"idea-to-market/internal/config"

	"github.com/rs/zerolog"
)

const service = "idea-to-market"

// New builds the service logger. Levels are trace|debug|info|warn|error,
// formats json|console. Dev mode forces console output and disables sampling.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return newTo(os.Stdout, cfg, dev)
}

func newTo(w io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base := zerolog.New(w).With().Timestamp().Str("service", service).Logger()

	if cfg.Sampling && !dev {
		// first 100 per level, then 1 in 100
		sampled := base.Sample(&zerolog.BurstSampler{
			Burst:       100,
			Period:      time.Second,
			NextSampler: &zerolog.BasicSampler{N: 100},
		})
		return &sampled
	}
	return &base
}

type ctxKey uint8

const (
	ctxTraceID ctxKey = iota
	ctxUserID
	ctxSessID
	ctxProvider
)

var ctxFields = [...]struct {
	key  ctxKey
	name string
}{
	{ctxTraceID, "trace_id"},
	{ctxUserID, "user_id"},
	{ctxSessID, "session_id"},
	{ctxProvider, "provider"},
}

// With returns base enriched with the request fields carried by ctx.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	l := base.With()
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			l = l.Str(f.name, v)
		}
	}
	logger := l.Logger()
	return &logger
}

// TraceDuration logs entry and exit of name at TRACE level.
// Usage: defer logging.TraceDuration(logger, "PaymentUC.HandleWebhook")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact masks an email or other identifier outside dev mode.
// Emails keep the first letter of the local part and the domain.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if at := strings.LastIndexByte(s, '@'); at > 0 {
		return s[:1] + "***" + s[at:]
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

func WithSessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessID, id)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ctxProvider, provider)
}

func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}
