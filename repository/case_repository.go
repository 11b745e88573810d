package repository

import (
	"database/sql"
	"fmt"
	"time"

	"caseflow/models"

	"github.com/google/uuid"
)

// CaseRepository handles database operations for cases and their timelines
type CaseRepository struct {
	db *sql.DB
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// GenerateCaseNumber generates a unique human-readable case number.
// Format: CASE-YYYYMMDD-<seq>-<suffix>. The sequence is today's case count;
// the random suffix keeps the number unique under concurrent creation.
func (r *CaseRepository) GenerateCaseNumber() (string, error) {
	var todayCount int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM cases WHERE created_at >= UTC_DATE()`,
	).Scan(&todayCount)
	if err != nil {
		return "", fmt.Errorf("failed to count today's cases: %w", err)
	}

	datePrefix := time.Now().UTC().Format("20060102")
	suffix := uuid.New().String()[:6]
	return fmt.Sprintf("CASE-%s-%04d-%s", datePrefix, todayCount+1, suffix), nil
}

const caseColumns = `
	case_id, case_number, title, description, status, priority,
	assigned_to, assigned_at,
	sla_due_date, sla_is_overdue, sla_escalated, sla_escalated_to, sla_escalated_at,
	resolved_by, resolved_at, resolution_summary,
	created_at, updated_at`

func scanCase(row interface{ Scan(...interface{}) error }) (*models.Case, error) {
	var c models.Case
	err := row.Scan(
		&c.CaseID, &c.CaseNumber, &c.Title, &c.Description, &c.Status, &c.Priority,
		&c.AssignedTo, &c.AssignedAt,
		&c.SLADueDate, &c.SLAIsOverdue, &c.SLAEscalated, &c.SLAEscalatedTo, &c.SLAEscalatedAt,
		&c.ResolvedBy, &c.ResolvedAt, &c.ResolutionSummary,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCase inserts a new case
func (r *CaseRepository) CreateCase(c *models.Case) error {
	query := `
		INSERT INTO cases (
			case_number, title, description, status, priority,
			assigned_to, assigned_at, sla_due_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(
		query,
		c.CaseNumber,
		c.Title,
		c.Description,
		c.Status,
		c.Priority,
		c.AssignedTo,
		c.AssignedAt,
		c.SLADueDate,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	caseID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get case ID: %w", err)
	}

	c.CaseID = caseID
	return nil
}

// GetCaseByID retrieves a case by its ID
func (r *CaseRepository) GetCaseByID(caseID int64) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_id = ?`

	c, err := scanCase(r.db.QueryRow(query, caseID))
	if err == sql.ErrNoRows {
		return nil, models.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// GetCaseByNumber retrieves a case by its human-readable case number
func (r *CaseRepository) GetCaseByNumber(caseNumber string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_number = ?`

	c, err := scanCase(r.db.QueryRow(query, caseNumber))
	if err == sql.ErrNoRows {
		return nil, models.ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// UpdateStatus updates the workflow status of a case
func (r *CaseRepository) UpdateStatus(caseID int64, status models.CaseStatus) error {
	_, err := r.db.Exec(
		`UPDATE cases SET status = ?, updated_at = UTC_TIMESTAMP() WHERE case_id = ?`,
		status, caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	return nil
}

// UpdatePriority updates priority and the recomputed SLA due date together
func (r *CaseRepository) UpdatePriority(caseID int64, priority models.CasePriority, dueDate time.Time) error {
	_, err := r.db.Exec(
		`UPDATE cases SET priority = ?, sla_due_date = ?, updated_at = UTC_TIMESTAMP() WHERE case_id = ?`,
		priority, dueDate, caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case priority: %w", err)
	}
	return nil
}

// UpdateAssignment sets the assignee of a case
func (r *CaseRepository) UpdateAssignment(caseID, userID int64, assignedAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE cases SET assigned_to = ?, assigned_at = ?, updated_at = UTC_TIMESTAMP() WHERE case_id = ?`,
		userID, assignedAt, caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case assignment: %w", err)
	}
	return nil
}

// SetResolution stamps the resolution record if the case has none yet.
// Returns true only for the first resolution; later status churn is a no-op.
func (r *CaseRepository) SetResolution(caseID, resolvedBy int64, resolvedAt time.Time, summary string) (bool, error) {
	// resolvedBy <= 0 means a system resolution with no actor.
	by := sql.NullInt64{Int64: resolvedBy, Valid: resolvedBy > 0}
	result, err := r.db.Exec(
		`UPDATE cases
		 SET resolved_by = ?, resolved_at = ?, resolution_summary = ?, updated_at = UTC_TIMESTAMP()
		 WHERE case_id = ? AND resolved_at IS NULL`,
		by, resolvedAt, summary, caseID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set resolution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkOverdue flips sla_is_overdue for an active case. The WHERE guard makes
// the breach sweep idempotent: a second pass affects zero rows.
func (r *CaseRepository) MarkOverdue(caseID int64) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE cases
		 SET sla_is_overdue = TRUE, updated_at = UTC_TIMESTAMP()
		 WHERE case_id = ? AND sla_is_overdue = FALSE AND status IN (?, ?)`,
		caseID, models.StatusOpen, models.StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark case overdue: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkEscalated records the escalation target and time. sla_escalated is
// monotonic; the WHERE guard rejects a second escalation of the same case and
// a case that left the active set between selection and this write.
func (r *CaseRepository) MarkEscalated(caseID, toUserID int64, escalatedAt time.Time) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE cases
		 SET sla_escalated = TRUE, sla_escalated_to = ?, sla_escalated_at = ?, updated_at = UTC_TIMESTAMP()
		 WHERE case_id = ? AND sla_escalated = FALSE AND status IN (?, ?)`,
		toUserID, escalatedAt, caseID, models.StatusOpen, models.StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark case escalated: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindBreachCandidates selects active cases whose due date has passed and
// which are not yet marked overdue
func (r *CaseRepository) FindBreachCandidates(now time.Time, limit int) ([]models.Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE status IN (?, ?)
			AND sla_due_date < ?
			AND sla_is_overdue = FALSE
		ORDER BY sla_due_date ASC
		LIMIT ?
	`
	return r.queryCases(query, models.StatusOpen, models.StatusInProgress, now, limit)
}

// FindEscalationCandidates selects active unescalated cases whose due date
// passed before the cutoff (now minus the grace period)
func (r *CaseRepository) FindEscalationCandidates(cutoff time.Time, limit int) ([]models.Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE status IN (?, ?)
			AND sla_due_date < ?
			AND sla_escalated = FALSE
		ORDER BY sla_due_date ASC
		LIMIT ?
	`
	return r.queryCases(query, models.StatusOpen, models.StatusInProgress, cutoff, limit)
}

func (r *CaseRepository) queryCases(query string, args ...interface{}) ([]models.Case, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}
	return cases, nil
}

// CountActiveByAssignee returns the live count of open/in-progress cases
// assigned to the user. This is the source of truth the reconciliation sweep
// copies into users.current_case_load.
func (r *CaseRepository) CountActiveByAssignee(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM cases WHERE assigned_to = ? AND status IN (?, ?)`,
		userID, models.StatusOpen, models.StatusInProgress,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active cases: %w", err)
	}
	return count, nil
}

// CountOverdueByAssignee returns the live count of the user's overdue active cases
func (r *CaseRepository) CountOverdueByAssignee(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM cases
		 WHERE assigned_to = ? AND sla_is_overdue = TRUE AND status IN (?, ?)`,
		userID, models.StatusOpen, models.StatusInProgress,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue cases: %w", err)
	}
	return count, nil
}

// CaseCounts returns the aggregate counts used by the liveness sweep
func (r *CaseRepository) CaseCounts() (models.CaseCounts, error) {
	var counts models.CaseCounts
	err := r.db.QueryRow(
		`SELECT
			COUNT(*),
			COALESCE(SUM(status IN (?, ?)), 0),
			COALESCE(SUM(sla_is_overdue = TRUE AND status IN (?, ?)), 0)
		FROM cases`,
		models.StatusOpen, models.StatusInProgress,
		models.StatusOpen, models.StatusInProgress,
	).Scan(&counts.Total, &counts.Active, &counts.Overdue)
	if err != nil {
		return models.CaseCounts{}, fmt.Errorf("failed to count cases: %w", err)
	}
	return counts, nil
}

// AppendTimelineEvent appends one event to a case's timeline. Timeline rows
// are immutable; there is no update or delete path.
func (r *CaseRepository) AppendTimelineEvent(event *models.TimelineEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO case_timeline (case_id, action, description, actor_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(
		query,
		event.CaseID,
		event.Action,
		event.Description,
		event.ActorID,
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append timeline event: %w", err)
	}

	eventID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.EventID = eventID
	return nil
}

// GetTimeline retrieves a case's timeline in append order
func (r *CaseRepository) GetTimeline(caseID int64) ([]models.TimelineEvent, error) {
	query := `
		SELECT event_id, case_id, action, description, actor_id, metadata, created_at
		FROM case_timeline
		WHERE case_id = ?
		ORDER BY event_id ASC
	`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var events []models.TimelineEvent
	for rows.Next() {
		var e models.TimelineEvent
		err := rows.Scan(
			&e.EventID,
			&e.CaseID,
			&e.Action,
			&e.Description,
			&e.ActorID,
			&e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return events, nil
}

// DeleteCase removes a case and its timeline. Only the external delete path
// uses this; sweeps never delete.
func (r *CaseRepository) DeleteCase(caseID int64) error {
	if _, err := r.db.Exec(`DELETE FROM case_timeline WHERE case_id = ?`, caseID); err != nil {
		return fmt.Errorf("failed to delete case timeline: %w", err)
	}
	result, err := r.db.Exec(`DELETE FROM cases WHERE case_id = ?`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrCaseNotFound
	}
	return nil
}
