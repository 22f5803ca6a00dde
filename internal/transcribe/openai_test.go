package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "RE123.mp3")
	require.NoError(t, os.WriteFile(p, []byte("ID3-fake-mp3"), 0o644))
	return p
}

func TestWhisper_TranscribeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer f.Close()
			assert.Equal(t, "RE123.mp3", hdr.Filename)
			b, _ := io.ReadAll(f)
			assert.Equal(t, "ID3-fake-mp3", string(b))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": " I have something to confess. "}`))
	}))
	defer srv.Close()

	wh := NewWhisper(Config{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	text, err := wh.TranscribeFile(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "I have something to confess.", text)
}

func TestWhisper_TranscribeFileAPIError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "server exploded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	wh := NewWhisper(Config{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := wh.TranscribeFile(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Equal(t, 1, calls, "expected no retries")
}

func TestWhisper_TranscribeMissingFile(t *testing.T) {
	wh := NewWhisper(Config{APIKey: "sk-test"})
	_, err := wh.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorContains(t, err, "opening")
}
