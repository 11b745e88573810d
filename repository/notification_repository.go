package repository

import (
	"database/sql"
	"fmt"
	"time"

	"caseflow/models"
)

// NotificationRepository handles database operations for the notification queue
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts a new queued notification
func (r *NotificationRepository) CreateNotification(n *models.Notification) error {
	query := `
		INSERT INTO notifications (
			entity_type, entity_id, recipient_user_id, kind,
			subject, body, payload,
			status, retry_count, max_retries, next_retry_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(
		query,
		n.EntityType,
		n.EntityID,
		n.RecipientUserID,
		n.Kind,
		n.Subject,
		n.Body,
		n.Payload,
		n.Status,
		n.RetryCount,
		n.MaxRetries,
		n.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	notificationID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification ID: %w", err)
	}

	n.NotificationID = notificationID
	return nil
}

// GetPendingNotifications retrieves queued notifications that are ready to send
func (r *NotificationRepository) GetPendingNotifications(limit int) ([]models.Notification, error) {
	query := `
		SELECT
			notification_id, entity_type, entity_id, recipient_user_id, kind,
			subject, body, payload,
			status, retry_count, max_retries,
			next_retry_at, sent_at, failed_at, error_message,
			created_at, updated_at
		FROM notifications
		WHERE status IN ('pending', 'retrying')
			AND (next_retry_at IS NULL OR next_retry_at <= UTC_TIMESTAMP())
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.NotificationID,
			&n.EntityType,
			&n.EntityID,
			&n.RecipientUserID,
			&n.Kind,
			&n.Subject,
			&n.Body,
			&n.Payload,
			&n.Status,
			&n.RetryCount,
			&n.MaxRetries,
			&n.NextRetryAt,
			&n.SentAt,
			&n.FailedAt,
			&n.ErrorMessage,
			&n.CreatedAt,
			&n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// UpdateNotificationStatus updates notification status and related fields
func (r *NotificationRepository) UpdateNotificationStatus(
	notificationID int64,
	status models.NotificationStatus,
	errorMessage *string,
) error {
	var query string
	var args []interface{}

	switch status {
	case models.NotificationStatusSent:
		query = `
			UPDATE notifications
			SET status = ?, sent_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP(), error_message = NULL
			WHERE notification_id = ?
		`
		args = []interface{}{status, notificationID}
	case models.NotificationStatusFailed:
		query = `
			UPDATE notifications
			SET status = ?, failed_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP(), error_message = ?
			WHERE notification_id = ?
		`
		if errorMessage != nil {
			args = []interface{}{status, *errorMessage, notificationID}
		} else {
			args = []interface{}{status, sql.NullString{}, notificationID}
		}
	default:
		query = `
			UPDATE notifications
			SET status = ?, updated_at = UTC_TIMESTAMP()
			WHERE notification_id = ?
		`
		args = []interface{}{status, notificationID}
	}

	_, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	return nil
}

// ScheduleRetry marks a notification for retry at the given time
func (r *NotificationRepository) ScheduleRetry(
	notificationID int64,
	nextRetryAt time.Time,
	errorMessage string,
) error {
	query := `
		UPDATE notifications
		SET status = 'retrying',
			retry_count = retry_count + 1,
			next_retry_at = ?,
			error_message = ?,
			updated_at = UTC_TIMESTAMP()
		WHERE notification_id = ?
	`

	_, err := r.db.Exec(query, nextRetryAt, errorMessage, notificationID)
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	return nil
}
