package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"hotline-relay/internal/calllog"
	"hotline-relay/internal/dedupe"
	"hotline-relay/internal/notify"
	"hotline-relay/internal/tasks"
	"hotline-relay/internal/urls"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

type scheduled struct {
	name  string
	delay time.Duration
	fn    tasks.Func
}

// recordingScheduler captures tasks instead of running them.
type recordingScheduler struct {
	mu    sync.Mutex
	tasks []scheduled
}

func (s *recordingScheduler) Go(name string, fn tasks.Func) string {
	return s.After(0, name, fn)
}

func (s *recordingScheduler) After(delay time.Duration, name string, fn tasks.Func) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, scheduled{name: name, delay: delay, fn: fn})
	return name
}

func (s *recordingScheduler) named(name string) []scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduled
	for _, t := range s.tasks {
		if t.name == name {
			out = append(out, t)
		}
	}
	return out
}

type countingProcessor struct {
	mu  sync.Mutex
	got []RecordingEvent
}

func (p *countingProcessor) Process(_ context.Context, ev RecordingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
	return nil
}

func testBuilder() urls.Builder {
	return urls.Builder{Host: "hotline.example.com", Port: "443", SSLEnabled: true}
}

func newTestRouter(h WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", h.HandleCallStarted)
	r.POST("/recording", h.HandleRecordingReady)
	r.POST("/transcription", h.HandleTranscription)
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleRecordingReadyMissingSid(t *testing.T) {
	sched := &recordingScheduler{}
	h := WebhookHandler{Tasks: sched, Processor: &countingProcessor{}, RecordingDelay: 3 * time.Second}

	w := postForm(newTestRouter(h), "/recording", url.Values{
		"RecordingUrl": {"https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE1"},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w.Body.String() != "Missing RecordingUrl or RecordingSid" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if len(sched.tasks) != 0 {
		t.Fatalf("expected nothing scheduled, got %d tasks", len(sched.tasks))
	}
}

func TestHandleRecordingReadyRejectsUnsafeSid(t *testing.T) {
	sched := &recordingScheduler{}
	h := WebhookHandler{Tasks: sched, Processor: &countingProcessor{}}

	w := postForm(newTestRouter(h), "/recording", url.Values{
		"RecordingUrl": {"https://api.twilio.com/x"},
		"RecordingSid": {"../../etc/passwd"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(sched.tasks) != 0 {
		t.Fatalf("expected nothing scheduled")
	}
}

func TestHandleRecordingReadySchedulesOncePerDelivery(t *testing.T) {
	sched := &recordingScheduler{}
	proc := &countingProcessor{}
	h := WebhookHandler{Tasks: sched, Processor: proc, RecordingDelay: 3 * time.Second}
	r := newTestRouter(h)

	form := url.Values{
		"CallSid":           {"CA1"},
		"RecordingUrl":      {"https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE1"},
		"RecordingSid":      {"RE1"},
		"RecordingDuration": {"12"},
	}
	for i := 0; i < 2; i++ {
		w := postForm(r, "/recording", form)
		if w.Code != http.StatusOK || w.Body.String() != "Recording saved" {
			t.Fatalf("delivery %d: got %d %q", i, w.Code, w.Body.String())
		}
	}

	runs := sched.named("recording.process")
	if len(runs) != 2 {
		t.Fatalf("expected one run per delivery (2), got %d", len(runs))
	}
	for _, run := range runs {
		if run.delay != 3*time.Second {
			t.Fatalf("expected 3s delay, got %s", run.delay)
		}
		if err := run.fn(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(proc.got) != 2 || proc.got[0].RecordingSID != "RE1" || proc.got[0].RecordingDuration != "12" {
		t.Fatalf("unexpected processed events %+v", proc.got)
	}
}

func TestHandleRecordingReadyGuardSkipsDuplicates(t *testing.T) {
	sched := &recordingScheduler{}
	repo := calllog.NewMemoryRepo()
	h := WebhookHandler{
		Tasks:     sched,
		Processor: &countingProcessor{},
		Guard:     dedupe.NewMemoryGuard(time.Hour),
		CallLog:   calllog.NewService(repo),
	}
	r := newTestRouter(h)

	form := url.Values{"CallSid": {"CA1"}, "RecordingUrl": {"https://x/RE1"}, "RecordingSid": {"RE1"}}
	for i := 0; i < 2; i++ {
		if w := postForm(r, "/recording", form); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	if n := len(sched.named("recording.process")); n != 1 {
		t.Fatalf("expected 1 run with guard, got %d", n)
	}
	dups := sched.named("calllog.recording_duplicate")
	if len(dups) != 1 {
		t.Fatalf("expected duplicate to be logged once, got %d", len(dups))
	}
	if err := dups[0].fn(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	counts, _ := repo.CountByType(context.Background())
	if counts[calllog.EventRecordingDuplicate] != 1 {
		t.Fatalf("expected duplicate event, got %+v", counts)
	}
}

func TestHandleCallStartedRespondsWithTwiML(t *testing.T) {
	sched := &recordingScheduler{}
	h := WebhookHandler{
		URLs:            testBuilder(),
		GreetingFile:    "hotline-welcome.mp3",
		RecordMaxLength: 300,
		RecordAction:    "/recording",
		Tasks:           sched,
	}

	w := postForm(newTestRouter(h), "/", url.Values{"CallSid": {"CA1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected text/xml, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<Play>https://hotline.example.com:443/assets/hotline-welcome.mp3</Play>") {
		t.Fatalf("missing greeting:\n%s", body)
	}
	if !strings.Contains(body, `maxLength="300"`) || !strings.Contains(body, `action="/recording"`) {
		t.Fatalf("missing record attrs:\n%s", body)
	}
	if len(sched.named("notify.call")) != 0 {
		t.Fatalf("notifications disabled, expected no send")
	}
}

func TestHandleCallStartedNotifiesEndToEnd(t *testing.T) {
	var (
		mu  sync.Mutex
		got []discordgo.WebhookParams
	)
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p discordgo.WebhookParams
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer chat.Close()

	runner := tasks.NewRunner(nil)
	h := WebhookHandler{
		URLs:            testBuilder(),
		GreetingFile:    "hotline-welcome.mp3",
		RecordMaxLength: 300,
		RecordAction:    "/recording",
		NotifyEnabled:   true,
		CallWebhook:     chat.URL,
		Sender:          notify.NewWebhook(chat.Client(), "Hotline"),
		Tasks:           runner,
	}

	w := postForm(newTestRouter(h), "/", url.Values{
		"CallSid":    {"CA1"},
		"Caller":     {"+15551234567"},
		"CallerCity": {"Reno"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Wait(ctx); err != nil {
		t.Fatalf("tasks did not finish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || len(got[0].Embeds) != 1 {
		t.Fatalf("expected one notification, got %+v", got)
	}
	e := got[0].Embeds[0]
	if e.Title != "Call in Progress" {
		t.Fatalf("unexpected title %q", e.Title)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("expected exactly Caller and City, got %+v", e.Fields)
	}
	if e.Fields[0].Name != "Caller" || e.Fields[0].Value != "+15551234567" {
		t.Fatalf("unexpected first field %+v", e.Fields[0])
	}
	if e.Fields[1].Name != "City" || e.Fields[1].Value != "Reno" {
		t.Fatalf("unexpected second field %+v", e.Fields[1])
	}
}

func TestHandleTranscription(t *testing.T) {
	h := WebhookHandler{}
	w := postForm(newTestRouter(h), "/transcription", url.Values{"TranscriptionText": {"hello"}})
	if w.Code != http.StatusOK || w.Body.String() != "Transcription saved" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
