package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"caseflow/models"
)

// Sender delivers a single notification to an external channel
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// NotificationError wraps a delivery failure with retry semantics
type NotificationError struct {
	Retryable bool
	Err       error
}

func (e *NotificationError) Error() string {
	return e.Err.Error()
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a delivery error is worth retrying
func IsRetryable(err error) bool {
	if nerr, ok := err.(*NotificationError); ok {
		return nerr.Retryable
	}
	// Unknown errors default to retryable; the retry cap bounds the damage.
	return true
}

// WebhookSender posts notifications as JSON to a configured HTTP endpoint
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a webhook sender with a per-attempt timeout
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	NotificationID  int64                   `json:"notification_id"`
	EntityType      string                  `json:"entity_type"`
	EntityID        int64                   `json:"entity_id"`
	RecipientUserID int64                   `json:"recipient_user_id"`
	Kind            models.NotificationKind `json:"kind"`
	Subject         string                  `json:"subject,omitempty"`
	Body            string                  `json:"body"`
	Payload         map[string]interface{}  `json:"payload,omitempty"`
}

// Send delivers the notification to the webhook endpoint
func (s *WebhookSender) Send(ctx context.Context, n *models.Notification) error {
	payload := webhookPayload{
		NotificationID:  n.NotificationID,
		EntityType:      n.EntityType,
		EntityID:        n.EntityID,
		RecipientUserID: n.RecipientUserID,
		Kind:            n.Kind,
		Body:            n.Body,
	}
	if n.Subject.Valid {
		payload.Subject = n.Subject.String
	}
	if n.Payload.Valid {
		if err := json.Unmarshal([]byte(n.Payload.String), &payload.Payload); err != nil {
			return &NotificationError{
				Retryable: false,
				Err:       fmt.Errorf("invalid notification payload: %w", err),
			}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &NotificationError{
			Retryable: false,
			Err:       fmt.Errorf("failed to marshal webhook payload: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{
			Retryable: false,
			Err:       fmt.Errorf("failed to build webhook request: %w", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &NotificationError{
			Retryable: true,
			Err:       fmt.Errorf("webhook request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &NotificationError{
			Retryable: true,
			Err:       fmt.Errorf("webhook returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode >= 400 {
		return &NotificationError{
			Retryable: false,
			Err:       fmt.Errorf("webhook rejected notification with %d", resp.StatusCode),
		}
	}

	return nil
}

// LogSender writes notifications to the process log. Used when no webhook URL
// is configured so the delivery pipeline still runs end to end.
type LogSender struct{}

// NewLogSender creates a log sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the notification
func (s *LogSender) Send(_ context.Context, n *models.Notification) error {
	subject := ""
	if n.Subject.Valid {
		subject = n.Subject.String
	}
	log.Printf("[NOTIFY] -> user %d [%s] %s: %s", n.RecipientUserID, n.Kind, subject, n.Body)
	return nil
}
