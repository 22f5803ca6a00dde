package telephony

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RecordingClient fetches recording media from Twilio's API using the
// account credentials as basic auth.
type RecordingClient struct {
	accountSID string
	authToken  string
	httpClient *http.Client
}

func NewRecordingClient(accountSID, authToken string, httpClient *http.Client) *RecordingClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &RecordingClient{accountSID: accountSID, authToken: authToken, httpClient: httpClient}
}

// DownloadError is returned when the media request completes with a non-2xx status.
type DownloadError struct {
	URL    string
	Status int
	Body   string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("telephony: download %s: status %d: %s", e.URL, e.Status, e.Body)
}

// MediaURL is the mp3 rendition of a recording resource.
func MediaURL(recordingURL string) string {
	return strings.TrimSpace(recordingURL) + ".mp3"
}

// Download opens the mp3 rendition of recordingURL. The caller closes the body.
func (c *RecordingClient) Download(ctx context.Context, recordingURL string) (io.ReadCloser, error) {
	url := MediaURL(recordingURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telephony: build download request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: download %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &DownloadError{URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp.Body, nil
}
