package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"caseflow/models"
)

// SLAService runs the breach detection sweep: active cases past their due
// date get flagged overdue exactly once and a breach event appended.
type SLAService struct {
	cases     CaseStore
	users     UserDirectory
	batchSize int

	now func() time.Time
}

// NewSLAService creates a new SLA breach service
func NewSLAService(cases CaseStore, users UserDirectory, batchSize int) *SLAService {
	return &SLAService{
		cases:     cases,
		users:     users,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessBreaches runs one breach sweep pass and returns how many cases were
// newly flagged. The MarkOverdue guard makes the pass idempotent: a case
// already flagged is filtered at selection and, if raced, rejected at the
// write, so a doubled tick flags each case once.
func (s *SLAService) ProcessBreaches(ctx context.Context) (int, error) {
	now := s.now()

	candidates, err := s.cases.FindBreachCandidates(now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get breach candidates: %w", err)
	}

	flagged := 0
	for i := range candidates {
		select {
		case <-ctx.Done():
			log.Printf("[SLA] Sweep timed out with %d cases remaining; will re-select next tick", len(candidates)-i)
			return flagged, nil
		default:
		}

		if err := s.flagBreach(&candidates[i], now); err != nil {
			log.Printf("[SLA] Skipping case %d: %v", candidates[i].CaseID, err)
			continue
		}
		flagged++
	}

	if flagged > 0 {
		log.Printf("[SLA] Breach sweep flagged %d of %d candidates", flagged, len(candidates))
	}
	return flagged, nil
}

// flagBreach marks a single case overdue and appends the breach event
func (s *SLAService) flagBreach(c *models.Case, now time.Time) error {
	marked, err := s.cases.MarkOverdue(c.CaseID)
	if err != nil {
		return fmt.Errorf("failed to mark overdue: %w", err)
	}
	if !marked {
		// Another pass got there first or the case left the active set.
		return nil
	}

	overdueMinutes := now.Sub(c.SLADueDate).Minutes()
	event := &models.TimelineEvent{
		CaseID: c.CaseID,
		Action: models.ActionSLABreach,
		Description: fmt.Sprintf("SLA breached: due %s, %.0f minutes overdue",
			c.SLADueDate.Format(time.RFC3339), overdueMinutes),
		CreatedAt: now,
	}
	metadata := fmt.Sprintf(`{"sla_due_date":%q,"overdue_minutes":%.0f}`,
		c.SLADueDate.Format(time.RFC3339), overdueMinutes)
	event.Metadata.String, event.Metadata.Valid = metadata, true
	if err := s.cases.AppendTimelineEvent(event); err != nil {
		return fmt.Errorf("failed to append breach event: %w", err)
	}

	if c.AssignedTo.Valid {
		if err := s.users.IncrementCounter(c.AssignedTo.Int64, models.FieldOverdueCases, 1); err != nil {
			// Corrected by the hourly reconciliation sweep.
			log.Printf("[SLA] Failed to bump overdue count for user %d: %v", c.AssignedTo.Int64, err)
		}
	}

	log.Printf("[SLA] Case %d (%s) marked overdue", c.CaseID, c.CaseNumber)
	return nil
}
