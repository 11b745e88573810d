package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"caseflow/models"
)

// HealthService collects the aggregate liveness snapshot. Collection is
// read-only against the store; the latest snapshot is cached for the health
// endpoint so that serving /health never touches the database.
type HealthService struct {
	cases CaseStore
	users UserDirectory

	mu       sync.RWMutex
	snapshot models.HealthSnapshot

	now func() time.Time
}

// NewHealthService creates a new health service
func NewHealthService(cases CaseStore, users UserDirectory) *HealthService {
	return &HealthService{
		cases: cases,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Collect refreshes the cached snapshot from the store
func (s *HealthService) Collect(ctx context.Context) error {
	counts, err := s.cases.CaseCounts()
	if err != nil {
		return fmt.Errorf("failed to collect case counts: %w", err)
	}
	activeUsers, err := s.users.CountActiveUsers()
	if err != nil {
		return fmt.Errorf("failed to count active users: %w", err)
	}

	snapshot := models.HealthSnapshot{
		TotalCases:   counts.Total,
		ActiveCases:  counts.Active,
		OverdueCases: counts.Overdue,
		ActiveUsers:  activeUsers,
		CollectedAt:  s.now(),
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	log.Printf("[HEALTH] cases=%d active=%d overdue=%d users=%d",
		snapshot.TotalCases, snapshot.ActiveCases, snapshot.OverdueCases, snapshot.ActiveUsers)
	return nil
}

// Snapshot returns the most recently collected snapshot. The zero snapshot
// (CollectedAt.IsZero()) means no collection has completed yet.
func (s *HealthService) Snapshot() models.HealthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
