package models

import (
	"database/sql"
	"time"
)

// NotificationKind represents what the notification is about
type NotificationKind string

const (
	KindEscalation NotificationKind = "escalation"
	KindDigest     NotificationKind = "digest"
)

// NotificationStatus represents the delivery status of a notification
type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusSent     NotificationStatus = "sent"
	NotificationStatusFailed   NotificationStatus = "failed"
	NotificationStatusRetrying NotificationStatus = "retrying"
)

// Notification is a queued alert for a user. Sweeps enqueue these and return
// immediately; the notification worker owns delivery and retries, so a slow
// or broken sender never stalls a sweep.
type Notification struct {
	NotificationID  int64            `db:"notification_id" json:"notification_id"`
	EntityType      string           `db:"entity_type" json:"entity_type"` // e.g. "case", "user"
	EntityID        int64            `db:"entity_id" json:"entity_id"`
	RecipientUserID int64            `db:"recipient_user_id" json:"recipient_user_id"`
	Kind            NotificationKind `db:"kind" json:"kind"`
	Subject         sql.NullString   `db:"subject" json:"subject"`
	Body            string           `db:"body" json:"body"`
	Payload         sql.NullString   `db:"payload" json:"payload"` // JSON

	Status       NotificationStatus `db:"status" json:"status"`
	RetryCount   int                `db:"retry_count" json:"retry_count"`
	MaxRetries   int                `db:"max_retries" json:"max_retries"`
	NextRetryAt  sql.NullTime       `db:"next_retry_at" json:"next_retry_at"`
	SentAt       sql.NullTime       `db:"sent_at" json:"sent_at"`
	FailedAt     sql.NullTime       `db:"failed_at" json:"failed_at"`
	ErrorMessage sql.NullString     `db:"error_message" json:"error_message"`

	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at" json:"updated_at"`
}

// NotificationRequest is a request to queue a notification
type NotificationRequest struct {
	EntityType      string                 `json:"entity_type"`
	EntityID        int64                  `json:"entity_id"`
	RecipientUserID int64                  `json:"recipient_user_id"`
	Kind            NotificationKind       `json:"kind"`
	Subject         *string                `json:"subject,omitempty"`
	Body            string                 `json:"body"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	MaxRetries      *int                   `json:"max_retries,omitempty"`
}

// NotificationConfig holds delivery and retry configuration
type NotificationConfig struct {
	DefaultMaxRetries int

	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64

	WorkerBatchSize int
	WorkerInterval  time.Duration

	// Upper bound on a single delivery attempt; keeps the sender off the
	// critical path even when the webhook endpoint hangs.
	SendTimeout time.Duration
}

// DefaultNotificationConfig returns default notification configuration
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		DefaultMaxRetries: 3,
		InitialRetryDelay: 1 * time.Minute,
		MaxRetryDelay:     30 * time.Minute,
		BackoffMultiplier: 2.0,
		WorkerBatchSize:   100,
		WorkerInterval:    30 * time.Second,
		SendTimeout:       5 * time.Second,
	}
}
