package models

import (
	"database/sql"
	"time"
)

// UserRole represents a user's role in the case workflow
type UserRole string

const (
	RoleAdmin         UserRole = "admin"
	RoleSeniorAnalyst UserRole = "senior_analyst"
	RoleAnalyst       UserRole = "analyst"
	RoleViewer        UserRole = "viewer"
)

// EscalationRoles are the roles eligible as fallback escalation targets
var EscalationRoles = []UserRole{RoleSeniorAnalyst, RoleAdmin}

// AnalystRoles are the roles whose workload counters the reconciliation sweep corrects
var AnalystRoles = []UserRole{RoleAnalyst, RoleSeniorAnalyst}

// Performance counter fields accepted by UserDirectory.IncrementCounter.
// The repository whitelists these against real columns.
const (
	FieldCurrentCaseLoad    = "current_case_load"
	FieldTotalCasesAssigned = "total_cases_assigned"
	FieldOverdueCases       = "overdue_cases"
)

// User represents a directory user with workload/performance counters.
// current_case_load is eventually consistent: it is maintained by independent
// atomic increments and corrected by the hourly reconciliation sweep.
type User struct {
	UserID        int64         `db:"user_id" json:"user_id"`
	FullName      string        `db:"full_name" json:"full_name"`
	Email         string        `db:"email" json:"email"`
	Role          UserRole      `db:"role" json:"role"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	SupervisorID  sql.NullInt64 `db:"supervisor_id" json:"supervisor_id"`
	DigestEnabled bool          `db:"digest_enabled" json:"digest_enabled"`

	CurrentCaseLoad      int     `db:"current_case_load" json:"current_case_load"`
	TotalCasesAssigned   int     `db:"total_cases_assigned" json:"total_cases_assigned"`
	TotalCasesResolved   int     `db:"total_cases_resolved" json:"total_cases_resolved"`
	AvgResolutionMinutes float64 `db:"avg_resolution_minutes" json:"avg_resolution_minutes"`
	OverdueCases         int     `db:"overdue_cases" json:"overdue_cases"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MonthlyStat is one per-user per-month performance bucket.
// The same online-mean recurrence as the user row is applied to the bucket.
type MonthlyStat struct {
	UserID               int64   `db:"user_id" json:"user_id"`
	Month                int     `db:"month" json:"month"`
	Year                 int     `db:"year" json:"year"`
	CasesResolved        int     `db:"cases_resolved" json:"cases_resolved"`
	AvgResolutionMinutes float64 `db:"avg_resolution_minutes" json:"avg_resolution_minutes"`
	OverdueCases         int     `db:"overdue_cases" json:"overdue_cases"`
}

// HealthSnapshot is the aggregate view collected by the liveness sweep
type HealthSnapshot struct {
	TotalCases   int       `json:"total_cases"`
	ActiveCases  int       `json:"active_cases"`
	OverdueCases int       `json:"overdue_cases"`
	ActiveUsers  int       `json:"active_users"`
	CollectedAt  time.Time `json:"collected_at"`
}
