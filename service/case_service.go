package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"caseflow/models"
)

// CaseService is the case lifecycle manager: it applies state transitions,
// appends timeline events, and keeps assignee workload counters moving.
type CaseService struct {
	cases  CaseStore
	users  UserDirectory
	policy *SLAPolicy

	now func() time.Time
}

// NewCaseService creates a new case service
func NewCaseService(cases CaseStore, users UserDirectory, policy *SLAPolicy) *CaseService {
	return &CaseService{
		cases:  cases,
		users:  users,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCaseInput is the input for creating a case
type CreateCaseInput struct {
	Title       string
	Description string
	Priority    models.CasePriority // empty defaults to P3
	AssignedTo  *int64
	ActorID     *int64
}

// CreateCase creates a new case in status open with its SLA due date computed
// from priority. An initial assignee gets an Assigned event and workload
// counter increments on top of the Created event.
func (s *CaseService) CreateCase(input CreateCaseInput) (*models.Case, error) {
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityP3
	} else if !models.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPriority, input.Priority)
	}

	if input.AssignedTo != nil {
		if err := s.checkAssignee(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	caseNumber, err := s.cases.GenerateCaseNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate case number: %w", err)
	}

	now := s.now()
	c := &models.Case{
		CaseNumber:  caseNumber,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.StatusOpen,
		Priority:    priority,
		SLADueDate:  s.policy.DueDate(now, priority),
		CreatedAt:   now,
	}
	if input.AssignedTo != nil {
		c.AssignedTo = sql.NullInt64{Int64: *input.AssignedTo, Valid: true}
		c.AssignedAt = sql.NullTime{Time: now, Valid: true}
	}

	if err := s.cases.CreateCase(c); err != nil {
		return nil, err
	}

	if err := s.appendEvent(c.CaseID, models.ActionCreated,
		fmt.Sprintf("Case %s created with priority %s", c.CaseNumber, priority),
		input.ActorID, map[string]interface{}{
			"priority":     string(priority),
			"sla_due_date": c.SLADueDate.Format(time.RFC3339),
		}); err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		assignee := *input.AssignedTo
		if err := s.appendEvent(c.CaseID, models.ActionAssigned,
			fmt.Sprintf("Case assigned to user %d", assignee),
			input.ActorID, map[string]interface{}{"assigned_to": assignee}); err != nil {
			return nil, err
		}
		s.bumpCounter(assignee, models.FieldCurrentCaseLoad, 1)
		s.bumpCounter(assignee, models.FieldTotalCasesAssigned, 1)
	}

	return c, nil
}

// ChangeStatus moves a case to a new workflow status. Transitions are
// intentionally unconstrained: any status may follow any other. A no-op
// transition is rejected silently with no timeline event. The first move into
// resolved/closed stamps the resolution record and updates the assignee's
// resolution-time performance.
func (s *CaseService) ChangeStatus(caseID int64, newStatus models.CaseStatus, actorID *int64) (*models.Case, error) {
	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, newStatus)
	}

	c, err := s.cases.GetCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status == newStatus {
		return c, nil
	}

	if err := s.appendEvent(caseID, models.ActionStatusChanged,
		fmt.Sprintf("Status changed from %s to %s", c.Status, newStatus),
		actorID, map[string]interface{}{
			"old_status": string(c.Status),
			"new_status": string(newStatus),
		}); err != nil {
		return nil, err
	}

	if err := s.cases.UpdateStatus(caseID, newStatus); err != nil {
		return nil, err
	}

	if (newStatus == models.StatusResolved || newStatus == models.StatusClosed) && !c.ResolvedAt.Valid {
		s.stampResolution(c, actorID)
	}

	return s.cases.GetCaseByID(caseID)
}

// stampResolution records the first resolution of a case and feeds the
// assignee's running resolution-time average. The store guard keeps this
// first-wins: a later resolved→closed churn never re-runs the calculation.
func (s *CaseService) stampResolution(c *models.Case, actorID *int64) {
	resolvedAt := s.now()
	var resolvedBy int64
	if actorID != nil {
		resolvedBy = *actorID
	}

	first, err := s.cases.SetResolution(c.CaseID, resolvedBy, resolvedAt, "")
	if err != nil {
		log.Printf("[CASE] Failed to set resolution for case %d: %v", c.CaseID, err)
		return
	}
	if !first {
		return
	}

	if !c.AssignedTo.Valid {
		return
	}
	resolutionMinutes := resolvedAt.Sub(c.CreatedAt).Minutes()
	month, year := int(resolvedAt.Month()), resolvedAt.Year()
	if err := s.users.RecordResolution(c.AssignedTo.Int64, resolutionMinutes, month, year); err != nil {
		// Counter drift is corrected by the reconciliation sweep.
		log.Printf("[CASE] Failed to record resolution performance for user %d: %v", c.AssignedTo.Int64, err)
	}
}

// ChangePriority updates a case's priority and recomputes the SLA due date
// from the time of the change. The SLA clock resets even for cases already
// past their original deadline.
func (s *CaseService) ChangePriority(caseID int64, newPriority models.CasePriority, actorID *int64) (*models.Case, error) {
	if !models.ValidPriority(newPriority) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPriority, newPriority)
	}

	c, err := s.cases.GetCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if c.Priority == newPriority {
		return c, nil
	}

	newDueDate := s.policy.DueDate(s.now(), newPriority)

	if err := s.appendEvent(caseID, models.ActionPriorityChanged,
		fmt.Sprintf("Priority changed from %s to %s", c.Priority, newPriority),
		actorID, map[string]interface{}{
			"old_priority": string(c.Priority),
			"new_priority": string(newPriority),
			"sla_due_date": newDueDate.Format(time.RFC3339),
		}); err != nil {
		return nil, err
	}

	if err := s.cases.UpdatePriority(caseID, newPriority, newDueDate); err != nil {
		return nil, err
	}

	return s.cases.GetCaseByID(caseID)
}

// Assign reassigns a case. The previous assignee's case load is decremented
// and the new assignee's load and assignment total are incremented; the two
// user rows are not updated transactionally, which the hourly reconciliation
// sweep compensates for.
func (s *CaseService) Assign(caseID, userID int64, actorID *int64) (*models.Case, error) {
	if err := s.checkAssignee(userID); err != nil {
		return nil, err
	}

	c, err := s.cases.GetCaseByID(caseID)
	if err != nil {
		return nil, err
	}
	if c.AssignedTo.Valid && c.AssignedTo.Int64 == userID {
		return c, nil
	}

	metadata := map[string]interface{}{"assigned_to": userID}
	if c.AssignedTo.Valid {
		metadata["previous_assignee"] = c.AssignedTo.Int64
	}
	if err := s.appendEvent(caseID, models.ActionAssigned,
		fmt.Sprintf("Case assigned to user %d", userID),
		actorID, metadata); err != nil {
		return nil, err
	}

	if err := s.cases.UpdateAssignment(caseID, userID, s.now()); err != nil {
		return nil, err
	}

	if c.AssignedTo.Valid {
		s.bumpCounter(c.AssignedTo.Int64, models.FieldCurrentCaseLoad, -1)
	}
	s.bumpCounter(userID, models.FieldCurrentCaseLoad, 1)
	s.bumpCounter(userID, models.FieldTotalCasesAssigned, 1)

	return s.cases.GetCaseByID(caseID)
}

// AddComment appends a free-text comment to the case timeline
func (s *CaseService) AddComment(caseID int64, text string, actorID *int64) error {
	if _, err := s.cases.GetCaseByID(caseID); err != nil {
		return err
	}
	return s.appendEvent(caseID, models.ActionCommentAdded, text, actorID, nil)
}

// GetCase retrieves a case by ID
func (s *CaseService) GetCase(caseID int64) (*models.Case, error) {
	return s.cases.GetCaseByID(caseID)
}

// GetCaseByNumber retrieves a case by its human-readable number
func (s *CaseService) GetCaseByNumber(caseNumber string) (*models.Case, error) {
	return s.cases.GetCaseByNumber(caseNumber)
}

// GetTimeline retrieves a case's timeline in append order
func (s *CaseService) GetTimeline(caseID int64) ([]models.TimelineEvent, error) {
	return s.cases.GetTimeline(caseID)
}

// DeleteCase removes a case and its timeline. An active case releases its
// assignee's workload slot before deletion.
func (s *CaseService) DeleteCase(caseID int64) error {
	c, err := s.cases.GetCaseByID(caseID)
	if err != nil {
		return err
	}
	if c.Active() && c.AssignedTo.Valid {
		s.bumpCounter(c.AssignedTo.Int64, models.FieldCurrentCaseLoad, -1)
	}
	return s.cases.DeleteCase(caseID)
}

// checkAssignee verifies the target user exists and is active
func (s *CaseService) checkAssignee(userID int64) error {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("%w: user %d", models.ErrInvalidAssignee, userID)
	}
	if !user.IsActive {
		return fmt.Errorf("%w: user %d is inactive", models.ErrInvalidAssignee, userID)
	}
	return nil
}

// bumpCounter applies an atomic counter delta; failures are logged, not
// propagated, because the reconciliation sweep restores the counters.
func (s *CaseService) bumpCounter(userID int64, field string, delta int) {
	if err := s.users.IncrementCounter(userID, field, delta); err != nil {
		log.Printf("[CASE] Failed to adjust %s for user %d by %+d: %v", field, userID, delta, err)
	}
}

// appendEvent appends one timeline event with an optional metadata bag
func (s *CaseService) appendEvent(caseID int64, action, description string, actorID *int64, metadata map[string]interface{}) error {
	event := &models.TimelineEvent{
		CaseID:      caseID,
		Action:      action,
		Description: description,
		CreatedAt:   s.now(),
	}
	if actorID != nil {
		event.ActorID = sql.NullInt64{Int64: *actorID, Valid: true}
	}
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		event.Metadata = sql.NullString{String: string(data), Valid: true}
	}
	return s.cases.AppendTimelineEvent(event)
}
