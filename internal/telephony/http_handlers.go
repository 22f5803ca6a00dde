package telephony

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hotline-relay/internal/calllog"
	"hotline-relay/internal/dedupe"
	"hotline-relay/internal/metrics"
	"hotline-relay/internal/notify"
	"hotline-relay/internal/tasks"
	"hotline-relay/internal/urls"
	"hotline-relay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	CallNotificationTitle = "Call in Progress"

	msgRecordingSaved     = "Recording saved"
	msgTranscriptionSaved = "Transcription saved"
	msgMissingRecording   = "Missing RecordingUrl or RecordingSid"
)

// Scheduler starts detached work. *tasks.Runner implements it.
type Scheduler interface {
	Go(name string, fn tasks.Func) string
	After(delay time.Duration, name string, fn tasks.Func) string
}

// RecordingProcessor handles a recording once the provider has finalized it.
type RecordingProcessor interface {
	Process(ctx context.Context, ev RecordingEvent) error
}

// WebhookHandler answers the provider's voice webhooks. Responses never wait
// on downstream work: notifications and recording processing are detached.
type WebhookHandler struct {
	URLs            urls.Builder
	GreetingFile    string
	RecordMaxLength int
	RecordAction    string

	NotifyEnabled bool
	CallWebhook   string
	Sender        notify.Sender

	Tasks          Scheduler
	Processor      RecordingProcessor
	RecordingDelay time.Duration

	// Guard is optional. When nil every delivery is processed.
	Guard dedupe.Guard

	CallLog *calllog.Service
	Metrics *metrics.Metrics
}

// HandleCallStarted returns the greeting/record/hangup flow for a new call.
func (h WebhookHandler) HandleCallStarted(c *gin.Context) {
	log := logger.FromGin(c)

	var ev CallEvent
	if err := c.ShouldBindWith(&ev, binding.Form); err != nil {
		// Missing caller fields are simply left out of the notification.
		log.Warn("call webhook parse failed", "err", err)
	}
	log = log.With("call_sid", ev.CallSID)
	log.Info("incoming call", "caller", ev.Caller)

	twiml, err := RenderRecordMessage(RecordMessage{
		GreetingURL: h.URLs.AssetURL(h.GreetingFile),
		MaxLength:   h.RecordMaxLength,
		Action:      h.RecordAction,
	})
	if err != nil {
		log.Error("twiml render failed", "err", err)
		h.Metrics.Webhook("call", http.StatusInternalServerError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twiml)
	h.Metrics.Webhook("call", http.StatusOK)

	if h.CallLog != nil && ev.CallSID != "" {
		h.Tasks.Go("calllog.call_started", func(ctx context.Context) error {
			return h.CallLog.LogCallStarted(ctx, ev.CallSID, ev.Caller)
		})
	}

	if !h.NotifyEnabled || h.Sender == nil {
		return
	}
	payload := notify.Payload{
		Title:  CallNotificationTitle,
		Fields: notify.Fields(notify.CallFields, ev.Attributes()),
		Footer: ev.CallSID,
	}
	h.Tasks.Go("notify.call", func(ctx context.Context) error {
		if err := h.Sender.Send(ctx, h.CallWebhook, payload); err != nil {
			h.Metrics.Notification("call", metrics.OutcomeFailed)
			return err
		}
		h.Metrics.Notification("call", metrics.OutcomeOK)
		return nil
	})
}

// HandleRecordingReady acknowledges a finished recording and schedules its
// processing after RecordingDelay.
func (h WebhookHandler) HandleRecordingReady(c *gin.Context) {
	log := logger.FromGin(c)

	var ev RecordingEvent
	err := c.ShouldBindWith(&ev, binding.Form)
	if err == nil {
		err = ev.Validate()
	}
	if err != nil {
		log.Warn("recording webhook rejected", "err", err)
		h.Metrics.Webhook("recording", http.StatusBadRequest)
		c.String(http.StatusBadRequest, msgMissingRecording)
		return
	}
	log = log.With("call_sid", ev.CallSID, "recording_sid", ev.RecordingSID)

	if !h.claim(c.Request.Context(), log, ev) {
		log.Info("duplicate recording delivery ignored")
		c.String(http.StatusOK, msgRecordingSaved)
		h.Metrics.Webhook("recording", http.StatusOK)
		h.logRecording(calllog.EventRecordingDuplicate, ev, "")
		return
	}

	c.String(http.StatusOK, msgRecordingSaved)
	h.Metrics.Webhook("recording", http.StatusOK)

	id := h.Tasks.After(h.RecordingDelay, "recording.process", func(ctx context.Context) error {
		return h.Processor.Process(ctx, ev)
	})
	log.Info("recording scheduled", "task_id", id, "delay", h.RecordingDelay.String())
	h.logRecording(calllog.EventRecordingReceived, ev, "")
}

// claim reports whether this delivery should be processed. Guard errors fail open.
func (h WebhookHandler) claim(ctx context.Context, log *slog.Logger, ev RecordingEvent) bool {
	if h.Guard == nil {
		return true
	}
	ok, err := h.Guard.Claim(ctx, ev.RecordingSID)
	if err != nil {
		if !errors.Is(err, dedupe.ErrEmptyKey) {
			log.Warn("dedupe claim failed", "err", err)
		}
		return true
	}
	return ok
}

func (h WebhookHandler) logRecording(typ calllog.EventType, ev RecordingEvent, detail string) {
	if h.CallLog == nil {
		return
	}
	h.Tasks.Go("calllog."+string(typ), func(ctx context.Context) error {
		return h.CallLog.LogRecording(ctx, typ, ev.CallSID, ev.RecordingSID, ev.Caller, detail)
	})
}

// HandleTranscription logs the provider's transcription callback.
func (h WebhookHandler) HandleTranscription(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("transcription webhook parse failed", "err", err)
	}
	log.Info("transcription received",
		"call_sid", c.Request.PostForm.Get("CallSid"),
		"recording_sid", c.Request.PostForm.Get("RecordingSid"),
		"form", c.Request.PostForm,
	)

	h.Metrics.Webhook("transcription", http.StatusOK)
	c.String(http.StatusOK, msgTranscriptionSaved)
}
