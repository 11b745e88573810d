package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/models"
)

func newDigestServiceForTest(now time.Time) (*DigestService, *fakeCaseStore, *fakeUserDirectory, *fakeQueue) {
	store := newFakeCaseStore()
	users := newFakeUserDirectory()
	queue := &fakeQueue{}
	svc := NewDigestService(store, users, queue)
	svc.now = func() time.Time { return now }
	return svc, store, users, queue
}

func TestDigestSkipsUsersWithNoWork(t *testing.T) {
	now := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)
	svc, store, users, queue := newDigestServiceForTest(now)

	busy := activeAnalyst(1)
	users.add(busy)
	idle := activeAnalyst(2)
	users.add(idle)
	optedOut := activeAnalyst(3)
	optedOut.DigestEnabled = false
	users.add(optedOut)

	c := overdueCase(0, now.Add(time.Hour), 1)
	require.NoError(t, store.CreateCase(&c))
	c2 := overdueCase(0, now.Add(time.Hour), 3)
	require.NoError(t, store.CreateCase(&c2))

	queued, err := svc.ProcessDigests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	require.Len(t, queue.requests, 1)
	req := queue.requests[0]
	assert.Equal(t, int64(1), req.RecipientUserID)
	assert.Equal(t, models.KindDigest, req.Kind)
	assert.Equal(t, 1, req.Payload["active_cases"])
}

func TestDigestCountsOverdueSeparately(t *testing.T) {
	now := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)
	svc, store, users, queue := newDigestServiceForTest(now)
	users.add(activeAnalyst(1))

	fresh := overdueCase(0, now.Add(time.Hour), 1)
	require.NoError(t, store.CreateCase(&fresh))
	late := overdueCase(0, now.Add(-time.Hour), 1)
	late.SLAIsOverdue = true
	require.NoError(t, store.CreateCase(&late))

	queued, err := svc.ProcessDigests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	req := queue.requests[0]
	assert.Equal(t, 2, req.Payload["active_cases"])
	assert.Equal(t, 1, req.Payload["overdue_cases"])
}
