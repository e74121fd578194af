package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

var _ ports.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts each event as JSON to a delivery service that owns
// templating and the actual email/push fan-out.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to url. A nil client gets a
// 10 second timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

type webhookBody struct {
	UserID  string           `json:"user_id"`
	Event   domain.EventType `json:"event"`
	Payload map[string]any   `json:"payload"`
	SentAt  time.Time        `json:"sent_at"`
}

// Notify posts the event. Non-2xx responses become *ports.DeliveryError so
// the retry middleware can tell transient failures from permanent ones.
func (w *WebhookNotifier) Notify(ctx context.Context, userID string, event domain.EventType, payload map[string]any) error {
	body, err := json.Marshal(webhookBody{
		UserID:  userID,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &ports.DeliveryError{Channel: "webhook", Err: fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ports.DeliveryError{
			Channel:    "webhook",
			StatusCode: resp.StatusCode,
			Err:        ports.ErrInvalidResponse,
		}
	}
	return nil
}
