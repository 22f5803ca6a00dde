package recording

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"hotline-relay/internal/calllog"
	"hotline-relay/internal/metrics"
	"hotline-relay/internal/notify"
	"hotline-relay/internal/telephony"
	"hotline-relay/internal/urls"
)

// Downloader fetches recording media. *telephony.RecordingClient implements it.
type Downloader interface {
	Download(ctx context.Context, recordingURL string) (io.ReadCloser, error)
}

// Transcriber turns a stored recording into text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

type Options struct {
	NotifyEnabled bool
	Webhook       string
	Title         string
}

// Deps are the collaborators of a Processor. Transcriber, CallLog and
// Metrics may be nil.
type Deps struct {
	Store       *Store
	Downloader  Downloader
	Transcriber Transcriber
	Sender      notify.Sender
	URLs        urls.Builder
	CallLog     *calllog.Service
	Metrics     *metrics.Metrics
	Log         *slog.Logger
}

// Processor downloads a finished recording, stores it, and announces it.
// Only the download and save are required to succeed; the rest is best-effort.
type Processor struct {
	Deps
	opts Options
}

func NewProcessor(deps Deps, opts Options) *Processor {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	deps.Log = deps.Log.With("comp", "recording")
	return &Processor{Deps: deps, opts: opts}
}

// Process runs once per scheduled delivery. Nothing is retried.
func (p *Processor) Process(ctx context.Context, ev telephony.RecordingEvent) error {
	log := p.Log.With("call_sid", ev.CallSID, "recording_sid", ev.RecordingSID)

	path, size, err := p.fetch(ctx, ev)
	if err != nil {
		log.Error("recording not saved", "err", err)
		p.Metrics.Recording(metrics.OutcomeFailed, 0)
		p.logEvent(ctx, log, calllog.EventRecordingFailed, ev, err.Error())
		return err
	}
	log.Info("recording saved", "path", path, "bytes", size)
	p.Metrics.Recording(metrics.OutcomeOK, size)
	p.logEvent(ctx, log, calllog.EventRecordingSaved, ev, strconv.FormatInt(size, 10)+" bytes")

	if !p.opts.NotifyEnabled || p.Sender == nil {
		return nil
	}

	transcript := p.transcribe(ctx, log, path)
	payload := notify.Payload{
		Title:  p.opts.Title,
		URL:    p.URLs.RecordingURL(FileName(ev.RecordingSID)),
		Fields: notify.WithTranscript(notify.Fields(notify.RecordingFields, ev.Attributes()), transcript),
		Footer: ev.CallSID,
	}
	if err := p.Sender.Send(ctx, p.opts.Webhook, payload); err != nil {
		log.Warn("recording notification failed", "err", err)
		p.Metrics.Notification("recording", metrics.OutcomeFailed)
		return nil
	}
	p.Metrics.Notification("recording", metrics.OutcomeOK)
	return nil
}

func (p *Processor) fetch(ctx context.Context, ev telephony.RecordingEvent) (string, int64, error) {
	if p.Store == nil || p.Downloader == nil {
		return "", 0, fmt.Errorf("recording: processor not configured")
	}
	body, err := p.Downloader.Download(ctx, ev.RecordingURL)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()
	return p.Store.Save(ev.RecordingSID, body)
}

func (p *Processor) transcribe(ctx context.Context, log *slog.Logger, path string) string {
	if p.Transcriber == nil {
		p.Metrics.Transcription(metrics.OutcomeSkipped)
		return ""
	}
	text, err := p.Transcriber.TranscribeFile(ctx, path)
	if err != nil {
		log.Warn("transcription failed", "err", err)
		p.Metrics.Transcription(metrics.OutcomeFailed)
		return ""
	}
	p.Metrics.Transcription(metrics.OutcomeOK)
	return text
}

func (p *Processor) logEvent(ctx context.Context, log *slog.Logger, typ calllog.EventType, ev telephony.RecordingEvent, detail string) {
	if p.CallLog == nil {
		return
	}
	if err := p.CallLog.LogRecording(ctx, typ, ev.CallSID, ev.RecordingSID, ev.Caller, detail); err != nil {
		log.Warn("call log append failed", "type", string(typ), "err", err)
	}
}
