package service

import (
	"time"

	"caseflow/models"
)

// CaseStore is the narrow persistence contract for cases. The MySQL
// implementation lives in the repository package; tests use in-memory fakes.
//
// Two guarantees are load-bearing: reads observe prior writes from the same
// process (read-your-writes), and the Mark*/SetResolution updates are guarded
// single-statement writes so that the sweeps stay idempotent.
type CaseStore interface {
	GenerateCaseNumber() (string, error)
	CreateCase(c *models.Case) error
	GetCaseByID(caseID int64) (*models.Case, error)
	GetCaseByNumber(caseNumber string) (*models.Case, error)
	UpdateStatus(caseID int64, status models.CaseStatus) error
	UpdatePriority(caseID int64, priority models.CasePriority, dueDate time.Time) error
	UpdateAssignment(caseID, userID int64, assignedAt time.Time) error

	// SetResolution stamps the resolution only if none exists; MarkOverdue and
	// MarkEscalated only flip their flag from false to true. All three report
	// whether a row actually changed.
	SetResolution(caseID, resolvedBy int64, resolvedAt time.Time, summary string) (bool, error)
	MarkOverdue(caseID int64) (bool, error)
	MarkEscalated(caseID, toUserID int64, escalatedAt time.Time) (bool, error)

	FindBreachCandidates(now time.Time, limit int) ([]models.Case, error)
	FindEscalationCandidates(cutoff time.Time, limit int) ([]models.Case, error)
	CountActiveByAssignee(userID int64) (int, error)
	CountOverdueByAssignee(userID int64) (int, error)
	CaseCounts() (models.CaseCounts, error)

	AppendTimelineEvent(event *models.TimelineEvent) error
	GetTimeline(caseID int64) ([]models.TimelineEvent, error)

	// DeleteCase removes a case and its timeline. External requests only;
	// sweeps never delete.
	DeleteCase(caseID int64) error
}

// UserDirectory is the narrow persistence contract for users. Counter
// mutations must be atomic at the store, never read-modify-write in
// application code, because sweeps and external requests race on them.
type UserDirectory interface {
	GetUserByID(userID int64) (*models.User, error)
	FindActiveByRoles(roles []models.UserRole) ([]models.User, error)
	FindDigestRecipients() ([]models.User, error)
	IncrementCounter(userID int64, field string, delta int) error
	OverwriteWorkload(userID int64, caseLoad, overdueCases int) error
	RecordResolution(userID int64, resolutionMinutes float64, month, year int) error
	CountActiveUsers() (int, error)
}

// NotificationQueue accepts notifications for asynchronous delivery. Queueing
// must be cheap; delivery happens on the notification worker.
type NotificationQueue interface {
	Queue(req *models.NotificationRequest) error
}
