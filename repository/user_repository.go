package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"caseflow/models"
)

// UserRepository handles database operations for the user directory
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	user_id, full_name, email, role, is_active, supervisor_id, digest_enabled,
	current_case_load, total_cases_assigned, total_cases_resolved,
	avg_resolution_minutes, overdue_cases, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.SupervisorID, &u.DigestEnabled,
		&u.CurrentCaseLoad, &u.TotalCasesAssigned, &u.TotalCasesResolved,
		&u.AvgResolutionMinutes, &u.OverdueCases, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`

	u, err := scanUser(r.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user
func (r *UserRepository) CreateUser(u *models.User) error {
	query := `
		INSERT INTO users (full_name, email, role, is_active, supervisor_id, digest_enabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, u.FullName, u.Email, u.Role, u.IsActive, u.SupervisorID, u.DigestEnabled)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	u.UserID = userID
	return nil
}

// FindActiveByRoles retrieves active users with any of the given roles,
// ordered by user_id so that candidate selection is deterministic within a
// sweep pass
func (r *UserRepository) FindActiveByRoles(roles []models.UserRole) ([]models.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(roles))
	args := make([]interface{}, len(roles))
	for i, role := range roles {
		placeholders[i] = "?"
		args[i] = role
	}

	query := `SELECT ` + userColumns + ` FROM users
		WHERE is_active = TRUE AND role IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY user_id ASC`

	return r.queryUsers(query, args...)
}

// FindDigestRecipients retrieves active users with digest notifications enabled
func (r *UserRepository) FindDigestRecipients() ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE is_active = TRUE AND digest_enabled = TRUE
		ORDER BY user_id ASC`

	return r.queryUsers(query)
}

func (r *UserRepository) queryUsers(query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// counterColumns whitelists the fields IncrementCounter may touch
var counterColumns = map[string]bool{
	models.FieldCurrentCaseLoad:    true,
	models.FieldTotalCasesAssigned: true,
	models.FieldOverdueCases:       true,
}

// IncrementCounter applies an atomic delta to a workload counter. The update
// is a single statement so concurrent sweeps and requests never lose writes;
// GREATEST keeps counters from going negative under out-of-order decrements.
func (r *UserRepository) IncrementCounter(userID int64, field string, delta int) error {
	if !counterColumns[field] {
		return fmt.Errorf("unknown counter field: %s", field)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s = GREATEST(CAST(%s AS SIGNED) + ?, 0) WHERE user_id = ?`,
		field, field,
	)
	result, err := r.db.Exec(query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// OverwriteWorkload resyncs current_case_load and overdue_cases from live
// counts. This is the reconciliation sweep's correcting write, not an increment.
func (r *UserRepository) OverwriteWorkload(userID int64, caseLoad, overdueCases int) error {
	_, err := r.db.Exec(
		`UPDATE users SET current_case_load = ?, overdue_cases = ? WHERE user_id = ?`,
		caseLoad, overdueCases, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to overwrite workload: %w", err)
	}
	return nil
}

// RecordResolution applies the online-mean resolution update to the user row
// and the current month's bucket:
//
//	avg = (avg*n + minutes) / (n+1); n = n+1; load = max(load-1, 0)
//
// MySQL applies SET assignments left to right, so the average is computed
// against the pre-increment count. Both statements are single-statement
// atomic; the user row and the monthly bucket are not transactional with each
// other (accepted drift, corrected by reconciliation).
func (r *UserRepository) RecordResolution(userID int64, resolutionMinutes float64, month, year int) error {
	_, err := r.db.Exec(
		`UPDATE users
		 SET avg_resolution_minutes =
				(avg_resolution_minutes * total_cases_resolved + ?) / (total_cases_resolved + 1),
			 total_cases_resolved = total_cases_resolved + 1,
			 current_case_load = GREATEST(CAST(current_case_load AS SIGNED) - 1, 0)
		 WHERE user_id = ?`,
		resolutionMinutes, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO user_monthly_stats (user_id, month, year, cases_resolved, avg_resolution_minutes)
		 VALUES (?, ?, ?, 1, ?)
		 ON DUPLICATE KEY UPDATE
			avg_resolution_minutes =
				(avg_resolution_minutes * cases_resolved + VALUES(avg_resolution_minutes)) / (cases_resolved + 1),
			cases_resolved = cases_resolved + 1`,
		userID, month, year, resolutionMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to update monthly stats: %w", err)
	}

	return nil
}

// GetMonthlyStats retrieves a user's monthly performance buckets, newest first
func (r *UserRepository) GetMonthlyStats(userID int64) ([]models.MonthlyStat, error) {
	query := `
		SELECT user_id, month, year, cases_resolved, avg_resolution_minutes, overdue_cases
		FROM user_monthly_stats
		WHERE user_id = ?
		ORDER BY year DESC, month DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly stats: %w", err)
	}
	defer rows.Close()

	var stats []models.MonthlyStat
	for rows.Next() {
		var s models.MonthlyStat
		err := rows.Scan(&s.UserID, &s.Month, &s.Year, &s.CasesResolved, &s.AvgResolutionMinutes, &s.OverdueCases)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly stats: %w", err)
	}
	return stats, nil
}

// CountActiveUsers returns the number of active users for the liveness snapshot
func (r *UserRepository) CountActiveUsers() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE is_active = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}
