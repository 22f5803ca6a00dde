package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

type Options struct {
	Env string
	// SentryDSN enables error reporting when set. Error level records are
	// forwarded in addition to stdout.
	SentryDSN string
	Release   string
	Output    io.Writer
}

// New returns a production-friendly structured logger.
// No business logic should depend on logging implementation details.
func New(appEnv string) *slog.Logger {
	l, _ := NewWithOptions(Options{Env: appEnv})
	return l
}

// NewWithOptions is New with optional Sentry fanout. It only fails when the
// Sentry client cannot be initialized.
func NewWithOptions(o Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if o.Env == "local" || o.Env == "dev" {
		level = slog.LevelDebug
	}
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	h := slog.Handler(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	if o.SentryDSN == "" {
		return slog.New(h), nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              o.SentryDSN,
		Environment:      o.Env,
		Release:          o.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return slog.New(h), err
	}
	return slog.New(slogmulti.Fanout(
		h,
		slogsentry.Option{Level: slog.LevelError}.NewSentryHandler(),
	)), nil
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush waits up to timeout for buffered error reports to be sent.
func ShutdownFlush(_ context.Context, timeout time.Duration) bool {
	if sentry.CurrentHub().Client() == nil {
		return true
	}
	return sentry.Flush(timeout)
}
