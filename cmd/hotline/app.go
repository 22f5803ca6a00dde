package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hotline-relay/internal/auth"
	"hotline-relay/internal/calllog"
	"hotline-relay/internal/config"
	"hotline-relay/internal/dedupe"
	"hotline-relay/internal/metrics"
	"hotline-relay/internal/notify"
	"hotline-relay/internal/recording"
	"hotline-relay/internal/tasks"
	"hotline-relay/internal/telephony"
	"hotline-relay/internal/transcribe"
	"hotline-relay/internal/urls"
	"hotline-relay/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

const dedupePrefix = "hotline:recording:"

// app holds the process-wide dependencies. It is built once per serve run.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	tasks    *tasks.Runner
	callLog  *calllog.Service
	auth     *auth.Manager

	webhooks telephony.WebhookHandler

	db  *sql.DB
	rdb *redis.Client
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry)
	a.tasks = tasks.NewRunner(log)

	repo, err := a.openCallLog(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.callLog = calllog.NewService(repo)

	guard, err := a.openGuard(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.AdminEnabled() {
		a.auth, err = auth.NewManager(cfg.Auth)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
	}

	builder := urls.NewBuilder(cfg.Server)
	sender := notify.NewWebhook(&http.Client{Timeout: 15 * time.Second}, "")

	var transcriber recording.Transcriber
	if cfg.TranscriptionEnabled() {
		transcriber = transcribe.NewWhisper(transcribe.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
	}

	processor := recording.NewProcessor(recording.Deps{
		Store:       recording.NewStore(cfg.Media.RecordingsDir),
		Downloader:  telephony.NewRecordingClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, nil),
		Transcriber: transcriber,
		Sender:      sender,
		URLs:        builder,
		CallLog:     a.callLog,
		Metrics:     m,
		Log:         log,
	}, recording.Options{
		NotifyEnabled: cfg.Notify.Enabled,
		Webhook:       cfg.Notify.RecordingWebhook,
		Title:         cfg.Notify.Title,
	})

	a.webhooks = telephony.WebhookHandler{
		URLs:            builder,
		GreetingFile:    cfg.Media.GreetingFile,
		RecordMaxLength: cfg.Media.RecordingMaxLength,
		RecordAction:    recordingRoute,
		NotifyEnabled:   cfg.Notify.Enabled,
		CallWebhook:     cfg.Notify.CallWebhook,
		Sender:          sender,
		Tasks:           a.tasks,
		Processor:       processor,
		RecordingDelay:  cfg.Media.RecordingDelay,
		Guard:           guard,
		CallLog:         a.callLog,
		Metrics:         m,
	}
	return a, nil
}

func (a *app) openCallLog(ctx context.Context) (calllog.Repository, error) {
	if a.cfg.DB.DSN == "" {
		return calllog.NewMemoryRepo(), nil
	}
	db, err := utils.OpenDB(ctx, a.cfg.DB.Driver, a.cfg.DB.DSN, utils.DBPoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("call log db init failed: %w", err)
	}
	a.db = db

	repo := calllog.NewSQLRepo(db, a.cfg.DB.Driver)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("call log migrate failed: %w", err)
	}
	return repo, nil
}

// openGuard returns nil when duplicate suppression is disabled.
func (a *app) openGuard(ctx context.Context) (dedupe.Guard, error) {
	if !a.cfg.Dedupe.Enabled {
		return nil, nil
	}
	if a.cfg.RedisAddr() == "" {
		return dedupe.NewMemoryGuard(a.cfg.Dedupe.TTL), nil
	}
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: a.cfg.RedisAddr()})
	if err != nil {
		return nil, fmt.Errorf("redis init failed: %w", err)
	}
	a.rdb = rdb
	return dedupe.NewRedisGuard(rdb, dedupePrefix, a.cfg.Dedupe.TTL), nil
}

// healthy reports whether the optional backing stores are reachable.
func (a *app) healthy(ctx context.Context) error {
	if a.db != nil {
		if err := utils.HealthCheck(ctx, a.db, 2*time.Second); err != nil {
			return err
		}
	}
	if a.rdb != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
