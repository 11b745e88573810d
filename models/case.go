package models

import (
	"database/sql"
	"time"
)

// CaseStatus represents the workflow state of a case
type CaseStatus string

const (
	StatusOpen       CaseStatus = "open"
	StatusInProgress CaseStatus = "in_progress"
	StatusResolved   CaseStatus = "resolved"
	StatusClosed     CaseStatus = "closed"
)

// ValidStatus reports whether s is one of the known workflow statuses
func ValidStatus(s CaseStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ActiveStatuses are the statuses the SLA sweeps consider
var ActiveStatuses = []CaseStatus{StatusOpen, StatusInProgress}

// CasePriority represents case priority levels
type CasePriority string

const (
	PriorityP1 CasePriority = "P1"
	PriorityP2 CasePriority = "P2"
	PriorityP3 CasePriority = "P3"
)

// ValidPriority reports whether p is one of the known priorities
func ValidPriority(p CasePriority) bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// Case represents a tracked security case with its SLA state
type Case struct {
	CaseID      int64        `db:"case_id" json:"case_id"`
	CaseNumber  string       `db:"case_number" json:"case_number"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Status      CaseStatus   `db:"status" json:"status"`
	Priority    CasePriority `db:"priority" json:"priority"`

	AssignedTo sql.NullInt64 `db:"assigned_to" json:"assigned_to"`
	AssignedAt sql.NullTime  `db:"assigned_at" json:"assigned_at"`

	// SLA state. is_overdue and escalated are monotonic while the case is
	// open/in progress; the idempotent guards live in the store queries.
	SLADueDate     time.Time     `db:"sla_due_date" json:"sla_due_date"`
	SLAIsOverdue   bool          `db:"sla_is_overdue" json:"sla_is_overdue"`
	SLAEscalated   bool          `db:"sla_escalated" json:"sla_escalated"`
	SLAEscalatedTo sql.NullInt64 `db:"sla_escalated_to" json:"sla_escalated_to"`
	SLAEscalatedAt sql.NullTime  `db:"sla_escalated_at" json:"sla_escalated_at"`

	// Resolution is stamped at most once; later status churn never rewrites it.
	ResolvedBy        sql.NullInt64  `db:"resolved_by" json:"resolved_by"`
	ResolvedAt        sql.NullTime   `db:"resolved_at" json:"resolved_at"`
	ResolutionSummary sql.NullString `db:"resolution_summary" json:"resolution_summary"`

	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at" json:"updated_at"`
}

// Active reports whether the case is still in a status the sweeps act on
func (c *Case) Active() bool {
	return c.Status == StatusOpen || c.Status == StatusInProgress
}

// Timeline event actions
const (
	ActionCreated         = "Created"
	ActionAssigned        = "Assigned"
	ActionStatusChanged   = "Status Changed"
	ActionPriorityChanged = "Priority Changed"
	ActionCommentAdded    = "Comment Added"
	ActionSLABreach       = "SLA Breach"
	ActionEscalated       = "Escalated"
)

// TimelineEvent is one entry in a case's append-only audit timeline.
// Metadata is an open key/value bag of primitive values, stored as JSON.
type TimelineEvent struct {
	EventID     int64          `db:"event_id" json:"event_id"`
	CaseID      int64          `db:"case_id" json:"case_id"`
	Action      string         `db:"action" json:"action"`
	Description string         `db:"description" json:"description"`
	ActorID     sql.NullInt64  `db:"actor_id" json:"actor_id"` // NULL = system
	Metadata    sql.NullString `db:"metadata" json:"metadata"` // JSON
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// CaseCounts is the aggregate snapshot collected by the liveness sweep
type CaseCounts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Overdue int `json:"overdue"`
}
