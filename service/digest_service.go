package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"caseflow/models"
)

// DigestService builds the daily workload digest for opted-in users. Users
// with nothing on their plate are skipped rather than sent an empty digest.
type DigestService struct {
	cases CaseStore
	users UserDirectory
	queue NotificationQueue

	now func() time.Time
}

// NewDigestService creates a new digest service
func NewDigestService(cases CaseStore, users UserDirectory, queue NotificationQueue) *DigestService {
	return &DigestService{
		cases: cases,
		users: users,
		queue: queue,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ProcessDigests runs one digest pass and returns how many digests were
// queued. One user's failure is logged and never blocks the other digests.
func (s *DigestService) ProcessDigests(ctx context.Context) (int, error) {
	recipients, err := s.users.FindDigestRecipients()
	if err != nil {
		return 0, fmt.Errorf("failed to load digest recipients: %w", err)
	}

	queued := 0
	for i := range recipients {
		select {
		case <-ctx.Done():
			log.Printf("[DIGEST] Pass timed out with %d recipients remaining", len(recipients)-i)
			return queued, nil
		default:
		}

		sent, err := s.digestForUser(&recipients[i])
		if err != nil {
			log.Printf("[DIGEST] Skipping user %d: %v", recipients[i].UserID, err)
			continue
		}
		if sent {
			queued++
		}
	}

	log.Printf("[DIGEST] Queued %d digests for %d recipients", queued, len(recipients))
	return queued, nil
}

// digestForUser queues one user's digest; returns false when skipped
func (s *DigestService) digestForUser(u *models.User) (bool, error) {
	active, err := s.cases.CountActiveByAssignee(u.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to count active cases: %w", err)
	}
	overdue, err := s.cases.CountOverdueByAssignee(u.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to count overdue cases: %w", err)
	}

	if active == 0 && overdue == 0 {
		return false, nil
	}

	now := s.now()
	subject := fmt.Sprintf("Daily case digest for %s", now.Format("2006-01-02"))
	body := fmt.Sprintf("You have %d active cases, %d of them overdue.", active, overdue)
	if err := s.queue.Queue(&models.NotificationRequest{
		EntityType:      "user",
		EntityID:        u.UserID,
		RecipientUserID: u.UserID,
		Kind:            models.KindDigest,
		Subject:         &subject,
		Body:            body,
		Payload: map[string]interface{}{
			"active_cases":  active,
			"overdue_cases": overdue,
			"digest_date":   now.Format("2006-01-02"),
		},
	}); err != nil {
		return false, fmt.Errorf("failed to queue digest: %w", err)
	}
	return true, nil
}
