package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"caseflow/models"
)

// EscalationResult reports what the escalation sweep did for one case
type EscalationResult struct {
	CaseID       int64     `json:"case_id"`
	CaseNumber   string    `json:"case_number"`
	Escalated    bool      `json:"escalated"`
	TargetUserID int64     `json:"target_user_id,omitempty"`
	Reason       string    `json:"reason"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// EscalationService resolves escalation targets and runs the escalation
// sweep: active cases whose SLA due date passed more than the grace period
// ago get redirected to a supervisor or senior role.
type EscalationService struct {
	cases     CaseStore
	users     UserDirectory
	queue     NotificationQueue
	grace     time.Duration
	batchSize int

	now func() time.Time
}

// NewEscalationService creates a new escalation service
func NewEscalationService(
	cases CaseStore,
	users UserDirectory,
	queue NotificationQueue,
	grace time.Duration,
	batchSize int,
) *EscalationService {
	return &EscalationService{
		cases:     cases,
		users:     users,
		queue:     queue,
		grace:     grace,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ResolveEscalationTarget computes where an overdue case should escalate:
// the assignee's active supervisor if there is one, otherwise the first
// active senior_analyst/admin by user id, excluding the assignee. Returns
// nil when no candidate exists; the case is retried on the next sweep tick.
func (s *EscalationService) ResolveEscalationTarget(c *models.Case) (*models.User, error) {
	var assigneeID int64 = -1
	if c.AssignedTo.Valid {
		assigneeID = c.AssignedTo.Int64

		assignee, err := s.users.GetUserByID(assigneeID)
		if err == nil && assignee.SupervisorID.Valid {
			supervisor, err := s.users.GetUserByID(assignee.SupervisorID.Int64)
			if err == nil && supervisor.IsActive {
				return supervisor, nil
			}
		}
		// Missing assignee or supervisor falls through to the role fallback.
	}

	candidates, err := s.users.FindActiveByRoles(models.EscalationRoles)
	if err != nil {
		return nil, fmt.Errorf("failed to load escalation candidates: %w", err)
	}
	for i := range candidates {
		if candidates[i].UserID == assigneeID {
			continue
		}
		return &candidates[i], nil
	}
	return nil, nil
}

// ProcessEscalations runs one escalation sweep pass. Idempotent: the store
// guard on sla_escalated means a doubled tick escalates each case once. A
// failure on one case is logged and does not abort the rest of the pass.
func (s *EscalationService) ProcessEscalations(ctx context.Context) ([]EscalationResult, error) {
	now := s.now()
	cutoff := now.Add(-s.grace)

	candidates, err := s.cases.FindEscalationCandidates(cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation candidates: %w", err)
	}

	var results []EscalationResult
	for i := range candidates {
		select {
		case <-ctx.Done():
			log.Printf("[ESCALATION] Sweep timed out with %d cases remaining; will re-select next tick", len(candidates)-i)
			return results, nil
		default:
		}

		result, err := s.escalateCase(&candidates[i], now)
		if err != nil {
			log.Printf("[ESCALATION] Skipping case %d: %v", candidates[i].CaseID, err)
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

// escalateCase processes escalation for a single case
func (s *EscalationService) escalateCase(c *models.Case, now time.Time) (*EscalationResult, error) {
	target, err := s.ResolveEscalationTarget(c)
	if err != nil {
		return nil, err
	}
	if target == nil {
		log.Printf("[ESCALATION] No escalation target for case %d; retrying next tick", c.CaseID)
		return &EscalationResult{
			CaseID:      c.CaseID,
			CaseNumber:  c.CaseNumber,
			Escalated:   false,
			Reason:      "no escalation target available",
			ProcessedAt: now,
		}, nil
	}

	marked, err := s.cases.MarkEscalated(c.CaseID, target.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark escalated: %w", err)
	}
	if !marked {
		// Lost the race to another pass; nothing more to do.
		return nil, nil
	}

	overdueMinutes := now.Sub(c.SLADueDate).Minutes()
	reason := fmt.Sprintf("SLA due date exceeded by %.0f minutes", overdueMinutes)

	event := &models.TimelineEvent{
		CaseID:      c.CaseID,
		Action:      models.ActionEscalated,
		Description: fmt.Sprintf("Case escalated to user %d: %s", target.UserID, reason),
		CreatedAt:   now,
	}
	metadata := fmt.Sprintf(`{"escalated_to":%d,"overdue_minutes":%.0f}`, target.UserID, overdueMinutes)
	event.Metadata.String, event.Metadata.Valid = metadata, true
	if err := s.cases.AppendTimelineEvent(event); err != nil {
		return nil, fmt.Errorf("failed to append escalation event: %w", err)
	}

	// Notification is advisory: a queue failure never rolls back the
	// escalation it accompanies.
	subject := fmt.Sprintf("Case %s escalated to you", c.CaseNumber)
	if err := s.queue.Queue(&models.NotificationRequest{
		EntityType:      "case",
		EntityID:        c.CaseID,
		RecipientUserID: target.UserID,
		Kind:            models.KindEscalation,
		Subject:         &subject,
		Body: fmt.Sprintf("Case %s (%s priority) breached its SLA and has been escalated to you. %s.",
			c.CaseNumber, c.Priority, reason),
		Payload: map[string]interface{}{
			"case_number":     c.CaseNumber,
			"priority":        string(c.Priority),
			"overdue_minutes": overdueMinutes,
		},
	}); err != nil {
		log.Printf("[ESCALATION] Failed to queue notification for case %d: %v", c.CaseID, err)
	}

	log.Printf("[ESCALATION] Case %d (%s) escalated to user %d", c.CaseID, c.CaseNumber, target.UserID)
	return &EscalationResult{
		CaseID:       c.CaseID,
		CaseNumber:   c.CaseNumber,
		Escalated:    true,
		TargetUserID: target.UserID,
		Reason:       reason,
		ProcessedAt:  now,
	}, nil
}
