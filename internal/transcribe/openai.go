// Package transcribe turns saved recordings into text.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the Whisper transcriber.
type Config struct {
	APIKey     string
	BaseURL    string // optional, e.g. an OpenAI-compatible gateway
	Model      string // default whisper-1
	HTTPClient *http.Client
}

// Whisper transcribes audio files with the OpenAI audio transcription API.
// Requests are made once; retries are disabled.
type Whisper struct {
	client openai.Client
	model  string
}

func NewWhisper(cfg Config) *Whisper {
	if cfg.Model == "" {
		cfg.Model = string(openai.AudioModelWhisper1)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	return &Whisper{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// TranscribeFile uploads the audio at path and returns the transcript text.
func (w *Whisper) TranscribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(w.model),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: calling whisper: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}
