package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"caseflow/models"
	"caseflow/notification"
)

// NotificationStore is the persistence contract for the notification queue
type NotificationStore interface {
	CreateNotification(n *models.Notification) error
	GetPendingNotifications(limit int) ([]models.Notification, error)
	UpdateNotificationStatus(notificationID int64, status models.NotificationStatus, errorMessage *string) error
	ScheduleRetry(notificationID int64, nextRetryAt time.Time, errorMessage string) error
}

// NotificationService owns the notification queue: sweeps enqueue through it
// and the notification worker drains it. Enqueueing is a single insert so the
// caller never waits on delivery.
type NotificationService struct {
	store  NotificationStore
	sender notification.Sender
	config *models.NotificationConfig

	now func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	store NotificationStore,
	sender notification.Sender,
	config *models.NotificationConfig,
) *NotificationService {
	if config == nil {
		config = models.DefaultNotificationConfig()
	}
	return &NotificationService{
		store:  store,
		sender: sender,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Queue enqueues a notification for asynchronous delivery
func (s *NotificationService) Queue(req *models.NotificationRequest) error {
	maxRetries := s.config.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	n := &models.Notification{
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		RecipientUserID: req.RecipientUserID,
		Kind:            req.Kind,
		Body:            req.Body,
		Status:          models.NotificationStatusPending,
		MaxRetries:      maxRetries,
	}
	if req.Subject != nil {
		n.Subject.String, n.Subject.Valid = *req.Subject, true
	}
	if len(req.Payload) > 0 {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal notification payload: %w", err)
		}
		n.Payload.String, n.Payload.Valid = string(data), true
	}

	if err := s.store.CreateNotification(n); err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}

	log.Printf("[NOTIFY] Queued %s notification %d for user %d", n.Kind, n.NotificationID, n.RecipientUserID)
	return nil
}

// ProcessPending drains one batch from the queue and returns how many
// notifications were delivered
func (s *NotificationService) ProcessPending(ctx context.Context) (int, error) {
	pending, err := s.store.GetPendingNotifications(s.config.WorkerBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending notifications: %w", err)
	}

	sent := 0
	for i := range pending {
		select {
		case <-ctx.Done():
			log.Printf("[NOTIFY] Batch timed out with %d notifications remaining", len(pending)-i)
			return sent, nil
		default:
		}

		if err := s.ProcessNotification(ctx, &pending[i]); err != nil {
			log.Printf("[NOTIFY] Delivery failed for notification %d: %v", pending[i].NotificationID, err)
			continue
		}
		sent++
	}

	return sent, nil
}

// ProcessNotification attempts delivery of a single notification
func (s *NotificationService) ProcessNotification(ctx context.Context, n *models.Notification) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	if err := s.sender.Send(sendCtx, n); err != nil {
		s.handleFailure(n, err)
		return err
	}

	if err := s.store.UpdateNotificationStatus(n.NotificationID, models.NotificationStatusSent, nil); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// handleFailure schedules a retry with exponential backoff, or marks the
// notification permanently failed when retries are exhausted or the error is
// not retryable
func (s *NotificationService) handleFailure(n *models.Notification, sendErr error) {
	msg := sendErr.Error()

	if !notification.IsRetryable(sendErr) || n.RetryCount >= n.MaxRetries {
		if err := s.store.UpdateNotificationStatus(n.NotificationID, models.NotificationStatusFailed, &msg); err != nil {
			log.Printf("[NOTIFY] Failed to mark notification %d failed: %v", n.NotificationID, err)
		}
		return
	}

	delay := s.retryDelay(n.RetryCount)
	nextRetryAt := s.now().Add(delay)
	if err := s.store.ScheduleRetry(n.NotificationID, nextRetryAt, msg); err != nil {
		log.Printf("[NOTIFY] Failed to schedule retry for notification %d: %v", n.NotificationID, err)
		return
	}
	log.Printf("[NOTIFY] Notification %d retry %d/%d in %s", n.NotificationID, n.RetryCount+1, n.MaxRetries, delay)
}

// retryDelay computes the exponential backoff delay for a given retry count
func (s *NotificationService) retryDelay(retryCount int) time.Duration {
	delay := time.Duration(float64(s.config.InitialRetryDelay) * math.Pow(s.config.BackoffMultiplier, float64(retryCount)))
	if delay > s.config.MaxRetryDelay {
		delay = s.config.MaxRetryDelay
	}
	return delay
}
