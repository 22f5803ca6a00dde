package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hotline-relay/internal/config"
	"hotline-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 20 * time.Second

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log, err := logger.NewWithOptions(logger.Options{Env: cfg.App.Env, SentryDSN: cfg.SentryDSN, Release: version})
	if err != nil {
		return fmt.Errorf("sentry init failed: %w", err)
	}
	slog.SetDefault(log)

	if err := cfg.CheckFiles(); err != nil {
		return fmt.Errorf("startup check failed: %w", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("hotline listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"tls", cfg.ServesTLS(),
			"notify", cfg.Notify.Enabled,
			"transcribe", cfg.TranscriptionEnabled(),
			"admin", cfg.AdminEnabled(),
		)
		var err error
		if cfg.ServesTLS() {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	// Scheduled recordings still run; wait for them within the same budget.
	if err := a.tasks.Wait(shutdownCtx); err != nil {
		log.Warn("background tasks still running at exit", "err", err)
	}

	logger.ShutdownFlush(shutdownCtx, 2*time.Second)
	return nil
}
