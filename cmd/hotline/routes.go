package main

import (
	"net/http"

	"hotline-relay/internal/auth"
	"hotline-relay/internal/httpapi"
	"hotline-relay/internal/metrics"
	"hotline-relay/internal/telephony"
	"hotline-relay/internal/urls"
	"hotline-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	callRoute          = "/"
	recordingRoute     = "/recording"
	transcriptionRoute = "/transcription"
)

// newRouter wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(a.log, "/healthz", "/metrics"))

	r.GET("/healthz", func(c *gin.Context) {
		if err := a.healthy(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(a.registry)))

	r.Static("/assets", a.cfg.Media.AssetsDir)
	r.Static("/recordings", a.cfg.Media.RecordingsDir)

	// Provider webhooks (public).
	hooks := r.Group("")
	if a.cfg.Twilio.ValidateSignature {
		hooks.Use(telephony.RequireSignature(a.cfg.Twilio.AuthToken, urls.NewBuilder(a.cfg.Server).Origin()))
	}
	hooks.POST(callRoute, a.webhooks.HandleCallStarted)
	hooks.POST(recordingRoute, a.webhooks.HandleRecordingReady)
	hooks.POST(transcriptionRoute, a.webhooks.HandleTranscription)

	if a.auth != nil {
		h := httpapi.Handlers{CallLog: a.callLog}
		v1 := r.Group("/v1", auth.RequireAccessToken(a.auth))
		v1.GET("/events", h.ListEvents)
		v1.GET("/summary", h.Summary)
	}
	return r
}
