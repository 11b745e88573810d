// Package schema: safe database initialization. Creates only missing tables, never drops or overwrites.

package schema

import (
	"database/sql"
	"log"
)

const (
	tableUsers         = "users"
	tableCases         = "cases"
	tableCaseTimeline  = "case_timeline"
	tableMonthlyStats  = "user_monthly_stats"
	tableNotifications = "notifications"
)

// InitializeDatabase ensures core tables exist. Checks INFORMATION_SCHEMA.TABLES
// and creates only missing tables in dependency order: users → cases →
// case_timeline → user_monthly_stats → notifications. Does not drop or
// recreate tables; does not remove data.
func InitializeDatabase(db *sql.DB) {
	// 1. users
	if exists, err := tableExists(db, tableUsers); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableUsers, err)
	} else if exists {
		log.Println("[SCHEMA] users table exists")
	} else {
		createUsersTable(db)
		log.Println("[SCHEMA] created users table")
	}

	// 2. cases (depends on users)
	if exists, err := tableExists(db, tableCases); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableCases, err)
	} else if exists {
		log.Println("[SCHEMA] cases table exists")
	} else {
		createCasesTable(db)
		log.Println("[SCHEMA] created cases table")
	}

	// 3. case_timeline (depends on cases)
	if exists, err := tableExists(db, tableCaseTimeline); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableCaseTimeline, err)
	} else if exists {
		log.Println("[SCHEMA] case_timeline table exists")
	} else {
		createCaseTimelineTable(db)
		log.Println("[SCHEMA] created case_timeline table")
	}

	// 4. user_monthly_stats (depends on users)
	if exists, err := tableExists(db, tableMonthlyStats); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableMonthlyStats, err)
	} else if !exists {
		createMonthlyStatsTable(db)
		log.Println("[SCHEMA] created user_monthly_stats table")
	}

	// 5. notifications (queue table, depends on users)
	if exists, err := tableExists(db, tableNotifications); err != nil {
		log.Fatalf("[SCHEMA] Failed to check if table %s exists: %v", tableNotifications, err)
	} else if !exists {
		createNotificationsTable(db)
		log.Println("[SCHEMA] created notifications table")
	}
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.TABLES
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func createUsersTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    full_name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    role ENUM('admin', 'senior_analyst', 'analyst', 'viewer') NOT NULL DEFAULT 'analyst',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    supervisor_id BIGINT NULL,
    digest_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    current_case_load INT NOT NULL DEFAULT 0,
    total_cases_assigned INT NOT NULL DEFAULT 0,
    total_cases_resolved INT NOT NULL DEFAULT 0,
    avg_resolution_minutes DOUBLE NOT NULL DEFAULT 0,
    overdue_cases INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (supervisor_id) REFERENCES users(user_id) ON DELETE SET NULL,
    INDEX idx_users_role_active (role, is_active)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table users: %v", err)
	}
}

func createCasesTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS cases (
    case_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    case_number VARCHAR(50) NOT NULL UNIQUE,
    title VARCHAR(500) NOT NULL,
    description TEXT NULL,
    status ENUM('open', 'in_progress', 'resolved', 'closed') NOT NULL DEFAULT 'open',
    priority ENUM('P1', 'P2', 'P3') NOT NULL DEFAULT 'P3',
    assigned_to BIGINT NULL,
    assigned_at TIMESTAMP NULL,
    sla_due_date TIMESTAMP NOT NULL,
    sla_is_overdue BOOLEAN NOT NULL DEFAULT FALSE,
    sla_escalated BOOLEAN NOT NULL DEFAULT FALSE,
    sla_escalated_to BIGINT NULL,
    sla_escalated_at TIMESTAMP NULL,
    resolved_by BIGINT NULL,
    resolved_at TIMESTAMP NULL,
    resolution_summary TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (assigned_to) REFERENCES users(user_id) ON DELETE SET NULL,
    FOREIGN KEY (sla_escalated_to) REFERENCES users(user_id) ON DELETE SET NULL,
    FOREIGN KEY (resolved_by) REFERENCES users(user_id) ON DELETE SET NULL,
    INDEX idx_cases_status_due (status, sla_due_date),
    INDEX idx_cases_assigned (assigned_to, status),
    INDEX idx_cases_overdue (sla_is_overdue, sla_escalated)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table cases: %v", err)
	}
}

func createCaseTimelineTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS case_timeline (
    event_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    case_id BIGINT NOT NULL,
    action VARCHAR(50) NOT NULL,
    description TEXT NULL,
    actor_id BIGINT NULL,
    metadata JSON NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (case_id) REFERENCES cases(case_id) ON DELETE CASCADE,
    FOREIGN KEY (actor_id) REFERENCES users(user_id) ON DELETE SET NULL,
    INDEX idx_timeline_case (case_id, event_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table case_timeline: %v", err)
	}
}

func createMonthlyStatsTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS user_monthly_stats (
    user_id BIGINT NOT NULL,
    month TINYINT NOT NULL,
    year SMALLINT NOT NULL,
    cases_resolved INT NOT NULL DEFAULT 0,
    avg_resolution_minutes DOUBLE NOT NULL DEFAULT 0,
    overdue_cases INT NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, year, month),
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table user_monthly_stats: %v", err)
	}
}

func createNotificationsTable(db *sql.DB) {
	q := `
CREATE TABLE IF NOT EXISTS notifications (
    notification_id BIGINT PRIMARY KEY AUTO_INCREMENT,
    entity_type VARCHAR(50) NOT NULL,
    entity_id BIGINT NOT NULL,
    recipient_user_id BIGINT NOT NULL,
    kind ENUM('escalation', 'digest') NOT NULL,
    subject VARCHAR(500) NULL,
    body TEXT NOT NULL,
    payload JSON NULL,
    status ENUM('pending', 'sent', 'failed', 'retrying') NOT NULL DEFAULT 'pending',
    retry_count INT NOT NULL DEFAULT 0,
    max_retries INT NOT NULL DEFAULT 3,
    next_retry_at TIMESTAMP NULL,
    sent_at TIMESTAMP NULL,
    failed_at TIMESTAMP NULL,
    error_message TEXT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (recipient_user_id) REFERENCES users(user_id) ON DELETE CASCADE,
    INDEX idx_notifications_pending (status, next_retry_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	if _, err := db.Exec(q); err != nil {
		log.Fatalf("[SCHEMA] Failed to create table notifications: %v", err)
	}
}
