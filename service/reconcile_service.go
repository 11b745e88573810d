package service

import (
	"context"
	"fmt"
	"log"

	"caseflow/models"
)

// ReconcileService corrects drift in per-user workload counters. Counters are
// maintained by independent atomic increments with no cross-row transaction,
// so a crash between two halves of a reassignment can leave them off by one;
// this sweep recomputes them from the cases table and overwrites.
type ReconcileService struct {
	cases CaseStore
	users UserDirectory
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(cases CaseStore, users UserDirectory) *ReconcileService {
	return &ReconcileService{cases: cases, users: users}
}

// ProcessReconciliation runs one reconciliation pass over all active analyst
// and senior_analyst users and returns how many users were corrected.
// Recomputing from the authoritative cases table makes the pass idempotent: a
// second run over unchanged data rewrites the same values.
func (s *ReconcileService) ProcessReconciliation(ctx context.Context) (int, error) {
	users, err := s.users.FindActiveByRoles(models.AnalystRoles)
	if err != nil {
		return 0, fmt.Errorf("failed to load users for reconciliation: %w", err)
	}

	corrected := 0
	for i := range users {
		select {
		case <-ctx.Done():
			log.Printf("[RECONCILE] Sweep timed out with %d users remaining", len(users)-i)
			return corrected, nil
		default:
		}

		changed, err := s.reconcileUser(&users[i])
		if err != nil {
			log.Printf("[RECONCILE] Skipping user %d: %v", users[i].UserID, err)
			continue
		}
		if changed {
			corrected++
		}
	}

	if corrected > 0 {
		log.Printf("[RECONCILE] Corrected workload counters for %d of %d users", corrected, len(users))
	}
	return corrected, nil
}

// reconcileUser recomputes one user's live counters and overwrites on drift
func (s *ReconcileService) reconcileUser(u *models.User) (bool, error) {
	caseLoad, err := s.cases.CountActiveByAssignee(u.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to count active cases: %w", err)
	}
	overdue, err := s.cases.CountOverdueByAssignee(u.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to count overdue cases: %w", err)
	}

	if caseLoad == u.CurrentCaseLoad && overdue == u.OverdueCases {
		return false, nil
	}

	log.Printf("[RECONCILE] User %d drift: case_load %d->%d, overdue %d->%d",
		u.UserID, u.CurrentCaseLoad, caseLoad, u.OverdueCases, overdue)
	if err := s.users.OverwriteWorkload(u.UserID, caseLoad, overdue); err != nil {
		return false, fmt.Errorf("failed to overwrite workload: %w", err)
	}
	return true, nil
}
