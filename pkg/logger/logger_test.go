package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNewWithOptionsWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions(Options{Env: "dev", Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Debug("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected json line, got %q", buf.String())
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestNewWithOptionsInvalidSentryDSN(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOptions(Options{Env: "production", SentryDSN: "not a dsn", Output: &buf})
	if err == nil {
		t.Fatalf("expected dsn error")
	}
	if l == nil {
		t.Fatalf("expected fallback logger")
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := New("test")
	if From(With(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
	if From(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
	if !ShutdownFlush(context.Background(), time.Millisecond) {
		t.Fatalf("expected flush without sentry to succeed")
	}
}

func TestMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l, _ := NewWithOptions(Options{Env: "production", Output: &buf})

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		FromGin(c).Info("inside")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "rid-1" {
		t.Fatalf("expected request id echo")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"rid-1"`)) {
		t.Fatalf("expected request id in logs: %s", buf.String())
	}
}
