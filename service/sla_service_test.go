package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/models"
)

func newSLAServiceForTest(now time.Time) (*SLAService, *fakeCaseStore, *fakeUserDirectory) {
	store := newFakeCaseStore()
	users := newFakeUserDirectory()
	svc := NewSLAService(store, users, 500)
	svc.now = func() time.Time { return now }
	return svc, store, users
}

func TestProcessBreachesFlagsOnlyPastDueActiveCases(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc, store, users := newSLAServiceForTest(now)
	users.add(activeAnalyst(7))

	pastDue := overdueCase(0, now.Add(-10*time.Minute), 7)
	require.NoError(t, store.CreateCase(&pastDue))
	notDue := overdueCase(0, now.Add(10*time.Minute), 7)
	require.NoError(t, store.CreateCase(&notDue))
	resolved := overdueCase(0, now.Add(-10*time.Minute), 7)
	resolved.Status = models.StatusResolved
	require.NoError(t, store.CreateCase(&resolved))

	flagged, err := svc.ProcessBreaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	after, _ := store.GetCaseByID(pastDue.CaseID)
	assert.True(t, after.SLAIsOverdue)
	assert.Equal(t, 1, countAction(store, pastDue.CaseID, models.ActionSLABreach))

	notDueAfter, _ := store.GetCaseByID(notDue.CaseID)
	assert.False(t, notDueAfter.SLAIsOverdue)
	resolvedAfter, _ := store.GetCaseByID(resolved.CaseID)
	assert.False(t, resolvedAfter.SLAIsOverdue)
}

func TestProcessBreachesIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc, store, users := newSLAServiceForTest(now)
	users.add(activeAnalyst(7))

	c := overdueCase(0, now.Add(-10*time.Minute), 7)
	require.NoError(t, store.CreateCase(&c))

	flagged, err := svc.ProcessBreaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	flagged, err = svc.ProcessBreaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)

	assert.Equal(t, 1, countAction(store, c.CaseID, models.ActionSLABreach))
	u, _ := users.GetUserByID(7)
	assert.Equal(t, 1, u.OverdueCases)
}

func TestProcessBreachesBumpsAssigneeOverdueCount(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc, store, users := newSLAServiceForTest(now)
	users.add(activeAnalyst(7))

	assigned := overdueCase(0, now.Add(-10*time.Minute), 7)
	require.NoError(t, store.CreateCase(&assigned))
	unassigned := overdueCase(0, now.Add(-10*time.Minute), 0)
	require.NoError(t, store.CreateCase(&unassigned))

	flagged, err := svc.ProcessBreaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)

	u, _ := users.GetUserByID(7)
	assert.Equal(t, 1, u.OverdueCases)
}

func TestBreachThenEscalationSequence(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store := newFakeCaseStore()
	users := newFakeUserDirectory()
	admin := activeAnalyst(1)
	admin.Role = models.RoleAdmin
	users.add(admin)
	users.add(activeAnalyst(7))

	slaSvc := NewSLAService(store, users, 500)
	slaSvc.now = func() time.Time { return now }
	escSvc := NewEscalationService(store, users, &fakeQueue{}, time.Hour, 500)
	escSvc.now = func() time.Time { return now }

	c := overdueCase(0, now.Add(-2*time.Hour), 7)
	require.NoError(t, store.CreateCase(&c))

	flagged, err := slaSvc.ProcessBreaches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	results, err := escSvc.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Escalated)

	assert.Equal(t,
		[]string{models.ActionSLABreach, models.ActionEscalated},
		store.actions(c.CaseID))
}
