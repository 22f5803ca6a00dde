package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Discord rejects embeds over these limits.
const (
	embedTitleLimit      = 256
	embedFieldValueLimit = 1024
	embedFooterLimit     = 2048
)

var ErrNoWebhookURL = errors.New("notify: webhook url is empty")

// Sender delivers a payload to a chat webhook.
type Sender interface {
	Send(ctx context.Context, webhookURL string, p Payload) error
}

// Webhook posts payloads as Discord webhook messages with a single embed.
// Delivery is attempted once; callers decide what a failure means.
type Webhook struct {
	httpClient *http.Client
	username   string
}

func NewWebhook(httpClient *http.Client, username string) *Webhook {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{httpClient: httpClient, username: username}
}

func (w *Webhook) Send(ctx context.Context, webhookURL string, p Payload) error {
	if webhookURL == "" {
		return ErrNoWebhookURL
	}

	body, err := json.Marshal(w.params(p))
	if err != nil {
		return fmt.Errorf("notify: marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return nil
}

func (w *Webhook) params(p Payload) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title: truncate(p.Title, embedTitleLimit),
		URL:   p.URL,
	}
	for _, f := range p.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Label,
			Value:  truncate(f.Value, embedFieldValueLimit),
			Inline: f.Inline,
		})
	}
	if p.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: truncate(p.Footer, embedFooterLimit)}
	}

	return &discordgo.WebhookParams{
		Username: w.username,
		Embeds:   []*discordgo.MessageEmbed{embed},
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
