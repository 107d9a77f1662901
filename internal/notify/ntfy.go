package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NtfyClient mirrors notifications to ntfy.sh (or a self-hosted ntfy
// server) so group events reach a phone while the terminal is unattended.
type NtfyClient struct {
	url   string // full URL: https://ntfy.sh/{topic}
	token string // optional bearer token for reserved topics
}

// NewNtfyClient accepts a bare topic name (expanded to
// https://ntfy.sh/{topic}) or a full URL.
func NewNtfyClient(topic, token string) *NtfyClient {
	url := topic
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		url = "https://ntfy.sh/" + topic
	}
	return &NtfyClient{url: url, token: token}
}

// Push implements Pusher. Failures are logged, never surfaced: push is a
// mirror, not a delivery guarantee.
func (c *NtfyClient) Push(title, message string) {
	if err := c.post(title, message); err != nil {
		slog.Warn("ntfy push failed", "err", err)
	}
}

func (c *NtfyClient) post(title, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	req.Header.Set("Title", title)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy: HTTP %d", resp.StatusCode)
	}
	return nil
}
