package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/models"
)

func newCaseServiceForTest(now time.Time) (*CaseService, *fakeCaseStore, *fakeUserDirectory) {
	store := newFakeCaseStore()
	users := newFakeUserDirectory()
	svc := NewCaseService(store, users, NewSLAPolicy(0))
	svc.now = func() time.Time { return now }
	return svc, store, users
}

func activeAnalyst(id int64) models.User {
	return models.User{
		UserID:        id,
		FullName:      "Test Analyst",
		Email:         "analyst@example.com",
		Role:          models.RoleAnalyst,
		IsActive:      true,
		DigestEnabled: true,
	}
}

func TestCreateCaseDefaults(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, store, _ := newCaseServiceForTest(now)

	c, err := svc.CreateCase(CreateCaseInput{Title: "Suspicious login"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOpen, c.Status)
	assert.Equal(t, models.PriorityP3, c.Priority)
	assert.Equal(t, now.Add(24*time.Hour), c.SLADueDate)
	assert.NotEmpty(t, c.CaseNumber)
	assert.False(t, c.AssignedTo.Valid)

	assert.Equal(t, []string{models.ActionCreated}, store.actions(c.CaseID))
}

func TestCreateCaseWithInitialAssignee(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, store, users := newCaseServiceForTest(now)
	users.add(activeAnalyst(7))

	assignee := int64(7)
	c, err := svc.CreateCase(CreateCaseInput{
		Title:      "Malware beacon",
		Priority:   models.PriorityP1,
		AssignedTo: &assignee,
	})
	require.NoError(t, err)

	assert.Equal(t, now.Add(1*time.Hour), c.SLADueDate)
	assert.Equal(t, []string{models.ActionCreated, models.ActionAssigned}, store.actions(c.CaseID))

	u, _ := users.GetUserByID(7)
	assert.Equal(t, 1, u.CurrentCaseLoad)
	assert.Equal(t, 1, u.TotalCasesAssigned)
}

func TestCreateCaseRejectsBadInput(t *testing.T) {
	now := time.Now().UTC()
	svc, _, users := newCaseServiceForTest(now)
	inactive := activeAnalyst(3)
	inactive.IsActive = false
	users.add(inactive)

	_, err := svc.CreateCase(CreateCaseInput{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, models.ErrInvalidPriority)

	missing := int64(99)
	_, err = svc.CreateCase(CreateCaseInput{Title: "x", AssignedTo: &missing})
	assert.ErrorIs(t, err, models.ErrInvalidAssignee)

	inactiveID := int64(3)
	_, err = svc.CreateCase(CreateCaseInput{Title: "x", AssignedTo: &inactiveID})
	assert.ErrorIs(t, err, models.ErrInvalidAssignee)
}

func TestChangeStatusAppendsEvent(t *testing.T) {
	now := time.Now().UTC()
	svc, store, _ := newCaseServiceForTest(now)
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	updated, err := svc.ChangeStatus(c.CaseID, models.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, []string{models.ActionCreated, models.ActionStatusChanged}, store.actions(c.CaseID))
}

func TestChangeStatusRejectsUnknown(t *testing.T) {
	svc, _, _ := newCaseServiceForTest(time.Now().UTC())
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	_, err := svc.ChangeStatus(c.CaseID, models.CaseStatus("archived"), nil)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestChangeStatusSameStatusIsSilentNoOp(t *testing.T) {
	svc, store, _ := newCaseServiceForTest(time.Now().UTC())
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	updated, err := svc.ChangeStatus(c.CaseID, models.StatusOpen, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, updated.Status)
	assert.Equal(t, []string{models.ActionCreated}, store.actions(c.CaseID))
}

func TestResolutionStampedOnceAndAverageUpdated(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, _, users := newCaseServiceForTest(created)
	users.add(activeAnalyst(7))

	assignee := int64(7)
	c, err := svc.CreateCase(CreateCaseInput{Title: "x", AssignedTo: &assignee})
	require.NoError(t, err)

	// Resolve 10 minutes after creation.
	svc.now = func() time.Time { return created.Add(10 * time.Minute) }
	actor := int64(7)
	resolved, err := svc.ChangeStatus(c.CaseID, models.StatusResolved, &actor)
	require.NoError(t, err)
	require.True(t, resolved.ResolvedAt.Valid)
	assert.Equal(t, created.Add(10*time.Minute), resolved.ResolvedAt.Time)

	u, _ := users.GetUserByID(7)
	assert.Equal(t, 1, u.TotalCasesResolved)
	assert.InDelta(t, 10.0, u.AvgResolutionMinutes, 0.001)
	assert.Equal(t, 0, u.CurrentCaseLoad)

	// Churn resolved -> in_progress -> closed must not restamp.
	svc.now = func() time.Time { return created.Add(3 * time.Hour) }
	_, err = svc.ChangeStatus(c.CaseID, models.StatusInProgress, &actor)
	require.NoError(t, err)
	closed, err := svc.ChangeStatus(c.CaseID, models.StatusClosed, &actor)
	require.NoError(t, err)

	assert.Equal(t, created.Add(10*time.Minute), closed.ResolvedAt.Time)
	u, _ = users.GetUserByID(7)
	assert.Equal(t, 1, u.TotalCasesResolved)
	assert.InDelta(t, 10.0, u.AvgResolutionMinutes, 0.001)
}

func TestResolutionAverageIsOnlineMean(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, _, users := newCaseServiceForTest(created)
	users.add(activeAnalyst(7))
	assignee := int64(7)

	first, err := svc.CreateCase(CreateCaseInput{Title: "a", AssignedTo: &assignee})
	require.NoError(t, err)
	second, err := svc.CreateCase(CreateCaseInput{Title: "b", AssignedTo: &assignee})
	require.NoError(t, err)

	svc.now = func() time.Time { return created.Add(10 * time.Minute) }
	_, err = svc.ChangeStatus(first.CaseID, models.StatusResolved, &assignee)
	require.NoError(t, err)

	svc.now = func() time.Time { return created.Add(20 * time.Minute) }
	_, err = svc.ChangeStatus(second.CaseID, models.StatusResolved, &assignee)
	require.NoError(t, err)

	u, _ := users.GetUserByID(7)
	assert.Equal(t, 2, u.TotalCasesResolved)
	assert.InDelta(t, 15.0, u.AvgResolutionMinutes, 0.001)
}

func TestChangePriorityResetsSLAClock(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, store, _ := newCaseServiceForTest(created)
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x", Priority: models.PriorityP3})

	changedAt := created.Add(2 * time.Hour)
	svc.now = func() time.Time { return changedAt }

	updated, err := svc.ChangePriority(c.CaseID, models.PriorityP1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityP1, updated.Priority)
	assert.Equal(t, changedAt.Add(1*time.Hour), updated.SLADueDate)
	assert.Equal(t, []string{models.ActionCreated, models.ActionPriorityChanged}, store.actions(c.CaseID))
}

func TestChangePrioritySameValueKeepsDueDate(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc, store, _ := newCaseServiceForTest(created)
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x", Priority: models.PriorityP2})

	svc.now = func() time.Time { return created.Add(3 * time.Hour) }
	updated, err := svc.ChangePriority(c.CaseID, models.PriorityP2, nil)
	require.NoError(t, err)

	assert.Equal(t, created.Add(4*time.Hour), updated.SLADueDate)
	assert.Equal(t, []string{models.ActionCreated}, store.actions(c.CaseID))
}

func TestAssignMovesWorkloadBetweenUsers(t *testing.T) {
	now := time.Now().UTC()
	svc, store, users := newCaseServiceForTest(now)
	users.add(activeAnalyst(1))
	users.add(activeAnalyst(2))

	first := int64(1)
	c, err := svc.CreateCase(CreateCaseInput{Title: "x", AssignedTo: &first})
	require.NoError(t, err)

	updated, err := svc.Assign(c.CaseID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.AssignedTo.Int64)

	u1, _ := users.GetUserByID(1)
	u2, _ := users.GetUserByID(2)
	assert.Equal(t, 0, u1.CurrentCaseLoad)
	assert.Equal(t, 1, u1.TotalCasesAssigned)
	assert.Equal(t, 1, u2.CurrentCaseLoad)
	assert.Equal(t, 1, u2.TotalCasesAssigned)

	assert.Equal(t, []string{models.ActionCreated, models.ActionAssigned, models.ActionAssigned}, store.actions(c.CaseID))
}

func TestAssignSameUserIsNoOp(t *testing.T) {
	now := time.Now().UTC()
	svc, store, users := newCaseServiceForTest(now)
	users.add(activeAnalyst(1))

	first := int64(1)
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x", AssignedTo: &first})

	_, err := svc.Assign(c.CaseID, 1, nil)
	require.NoError(t, err)

	u, _ := users.GetUserByID(1)
	assert.Equal(t, 1, u.CurrentCaseLoad)
	assert.Equal(t, 1, u.TotalCasesAssigned)
	assert.Equal(t, []string{models.ActionCreated, models.ActionAssigned}, store.actions(c.CaseID))
}

func TestAssignRejectsInactiveUser(t *testing.T) {
	svc, _, users := newCaseServiceForTest(time.Now().UTC())
	inactive := activeAnalyst(5)
	inactive.IsActive = false
	users.add(inactive)
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	_, err := svc.Assign(c.CaseID, 5, nil)
	assert.ErrorIs(t, err, models.ErrInvalidAssignee)
}

func TestAddCommentRequiresExistingCase(t *testing.T) {
	svc, store, _ := newCaseServiceForTest(time.Now().UTC())
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	require.NoError(t, svc.AddComment(c.CaseID, "checked the firewall logs", nil))
	assert.Equal(t, []string{models.ActionCreated, models.ActionCommentAdded}, store.actions(c.CaseID))

	err := svc.AddComment(999, "ghost", nil)
	assert.ErrorIs(t, err, models.ErrCaseNotFound)
}

func TestCounterFailureDoesNotFailAssignment(t *testing.T) {
	now := time.Now().UTC()
	svc, _, users := newCaseServiceForTest(now)
	users.add(activeAnalyst(1))
	c, _ := svc.CreateCase(CreateCaseInput{Title: "x"})

	users.failIncrement = true
	updated, err := svc.Assign(c.CaseID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.AssignedTo.Int64)
}
