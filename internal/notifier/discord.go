package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Discord posts alerts to a Discord webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordWebhookPayload struct {
	Content string `json:"content"`
}

// Send posts the message. An unset webhook URL skips delivery and reports
// success, matching the "notifications optional" configuration mode.
func (d *Discord) Send(ctx context.Context, message string) bool {
	if d.webhookURL == "" {
		return true
	}

	payloadBytes, err := json.Marshal(discordWebhookPayload{Content: message})
	if err != nil {
		slog.Error("Failed to marshal Discord payload", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		slog.Error("Failed to build Discord request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Error("Discord webhook request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	slog.Error("Discord webhook rejected message", "status", resp.Status, "body", string(bodyBytes))
	return false
}
