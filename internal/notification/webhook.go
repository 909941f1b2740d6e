package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Webhook event names.
const (
	eventTrade = "trade_executed"
	eventAlert = "engine_alert"
)

// webhookEvent is the JSON body POSTed to the receiver. Trade is present
// only for fills, carrying the structured execution fields.
type webhookEvent struct {
	Event   string `json:"event"`
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Trade   *Trade `json:"trade,omitempty"`
	SentAt  string `json:"sent_at"`
}

// WebhookNotifier POSTs alerts to an HTTP endpoint as webhookEvent JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier targeting url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	event := webhookEvent{
		Event:   eventAlert,
		Level:   string(alert.Level),
		Title:   alert.Title,
		Message: alert.Message,
		Trade:   alert.Trade,
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if alert.Trade != nil {
		event.Event = eventTrade
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[notify] webhook delivered %s: %s", event.Event, alert.Title)
	return nil
}
