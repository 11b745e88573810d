package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"caseflow/models"
)

// fakeCaseStore is an in-memory CaseStore with the same guarded-write
// semantics as the MySQL repository.
type fakeCaseStore struct {
	cases    map[int64]*models.Case
	timeline []models.TimelineEvent
	nextID   int64
	seq      int

	failTimeline bool
}

func newFakeCaseStore() *fakeCaseStore {
	return &fakeCaseStore{cases: make(map[int64]*models.Case)}
}

func (s *fakeCaseStore) GenerateCaseNumber() (string, error) {
	s.seq++
	return fmt.Sprintf("CASE-20260831-%04d-abc123", s.seq), nil
}

func (s *fakeCaseStore) CreateCase(c *models.Case) error {
	s.nextID++
	c.CaseID = s.nextID
	cp := *c
	s.cases[c.CaseID] = &cp
	return nil
}

func (s *fakeCaseStore) GetCaseByID(caseID int64) (*models.Case, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCaseStore) GetCaseByNumber(caseNumber string) (*models.Case, error) {
	for _, c := range s.cases {
		if c.CaseNumber == caseNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, models.ErrCaseNotFound
}

func (s *fakeCaseStore) UpdateStatus(caseID int64, status models.CaseStatus) error {
	c, ok := s.cases[caseID]
	if !ok {
		return models.ErrCaseNotFound
	}
	c.Status = status
	return nil
}

func (s *fakeCaseStore) UpdatePriority(caseID int64, priority models.CasePriority, dueDate time.Time) error {
	c, ok := s.cases[caseID]
	if !ok {
		return models.ErrCaseNotFound
	}
	c.Priority = priority
	c.SLADueDate = dueDate
	return nil
}

func (s *fakeCaseStore) UpdateAssignment(caseID, userID int64, assignedAt time.Time) error {
	c, ok := s.cases[caseID]
	if !ok {
		return models.ErrCaseNotFound
	}
	c.AssignedTo.Int64, c.AssignedTo.Valid = userID, true
	c.AssignedAt.Time, c.AssignedAt.Valid = assignedAt, true
	return nil
}

func (s *fakeCaseStore) SetResolution(caseID, resolvedBy int64, resolvedAt time.Time, summary string) (bool, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return false, models.ErrCaseNotFound
	}
	if c.ResolvedAt.Valid {
		return false, nil
	}
	c.ResolvedAt.Time, c.ResolvedAt.Valid = resolvedAt, true
	if resolvedBy > 0 {
		c.ResolvedBy.Int64, c.ResolvedBy.Valid = resolvedBy, true
	}
	if summary != "" {
		c.ResolutionSummary.String, c.ResolutionSummary.Valid = summary, true
	}
	return true, nil
}

func (s *fakeCaseStore) MarkOverdue(caseID int64) (bool, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return false, models.ErrCaseNotFound
	}
	if c.SLAIsOverdue || !c.Active() {
		return false, nil
	}
	c.SLAIsOverdue = true
	return true, nil
}

func (s *fakeCaseStore) MarkEscalated(caseID, toUserID int64, escalatedAt time.Time) (bool, error) {
	c, ok := s.cases[caseID]
	if !ok {
		return false, models.ErrCaseNotFound
	}
	if c.SLAEscalated || !c.Active() {
		return false, nil
	}
	c.SLAEscalated = true
	c.SLAEscalatedTo.Int64, c.SLAEscalatedTo.Valid = toUserID, true
	c.SLAEscalatedAt.Time, c.SLAEscalatedAt.Valid = escalatedAt, true
	return true, nil
}

func (s *fakeCaseStore) FindBreachCandidates(now time.Time, limit int) ([]models.Case, error) {
	var out []models.Case
	for _, c := range s.sortedCases() {
		if c.Active() && !c.SLAIsOverdue && c.SLADueDate.Before(now) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeCaseStore) FindEscalationCandidates(cutoff time.Time, limit int) ([]models.Case, error) {
	var out []models.Case
	for _, c := range s.sortedCases() {
		if c.Active() && !c.SLAEscalated && c.SLADueDate.Before(cutoff) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeCaseStore) CountActiveByAssignee(userID int64) (int, error) {
	n := 0
	for _, c := range s.cases {
		if c.Active() && c.AssignedTo.Valid && c.AssignedTo.Int64 == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeCaseStore) CountOverdueByAssignee(userID int64) (int, error) {
	n := 0
	for _, c := range s.cases {
		if c.Active() && c.SLAIsOverdue && c.AssignedTo.Valid && c.AssignedTo.Int64 == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeCaseStore) CaseCounts() (models.CaseCounts, error) {
	var counts models.CaseCounts
	for _, c := range s.cases {
		counts.Total++
		if c.Active() {
			counts.Active++
			if c.SLAIsOverdue {
				counts.Overdue++
			}
		}
	}
	return counts, nil
}

func (s *fakeCaseStore) AppendTimelineEvent(event *models.TimelineEvent) error {
	if s.failTimeline {
		return errors.New("timeline write failed")
	}
	event.EventID = int64(len(s.timeline) + 1)
	s.timeline = append(s.timeline, *event)
	return nil
}

func (s *fakeCaseStore) GetTimeline(caseID int64) ([]models.TimelineEvent, error) {
	var out []models.TimelineEvent
	for _, e := range s.timeline {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeCaseStore) DeleteCase(caseID int64) error {
	if _, ok := s.cases[caseID]; !ok {
		return models.ErrCaseNotFound
	}
	delete(s.cases, caseID)
	kept := s.timeline[:0]
	for _, e := range s.timeline {
		if e.CaseID != caseID {
			kept = append(kept, e)
		}
	}
	s.timeline = kept
	return nil
}

// actions returns the timeline action sequence for a case, in append order
func (s *fakeCaseStore) actions(caseID int64) []string {
	var out []string
	for _, e := range s.timeline {
		if e.CaseID == caseID {
			out = append(out, e.Action)
		}
	}
	return out
}

func (s *fakeCaseStore) sortedCases() []models.Case {
	ids := make([]int64, 0, len(s.cases))
	for id := range s.cases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Case, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.cases[id])
	}
	return out
}

// fakeUserDirectory is an in-memory UserDirectory applying the same counter
// arithmetic as the MySQL repository.
type fakeUserDirectory struct {
	users map[int64]*models.User

	failIncrement bool
	listErr       error
}

func newFakeUserDirectory() *fakeUserDirectory {
	return &fakeUserDirectory{users: make(map[int64]*models.User)}
}

func (d *fakeUserDirectory) add(u models.User) *models.User {
	cp := u
	d.users[u.UserID] = &cp
	return &cp
}

func (d *fakeUserDirectory) GetUserByID(userID int64) (*models.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeUserDirectory) FindActiveByRoles(roles []models.UserRole) ([]models.User, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	wanted := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}
	ids := make([]int64, 0, len(d.users))
	for id, u := range d.users {
		if u.IsActive && wanted[u.Role] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *d.users[id])
	}
	return out, nil
}

func (d *fakeUserDirectory) FindDigestRecipients() ([]models.User, error) {
	ids := make([]int64, 0, len(d.users))
	for id, u := range d.users {
		if u.IsActive && u.DigestEnabled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *d.users[id])
	}
	return out, nil
}

func (d *fakeUserDirectory) IncrementCounter(userID int64, field string, delta int) error {
	if d.failIncrement {
		return errors.New("increment failed")
	}
	u, ok := d.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	apply := func(v int) int {
		v += delta
		if v < 0 {
			return 0
		}
		return v
	}
	switch field {
	case models.FieldCurrentCaseLoad:
		u.CurrentCaseLoad = apply(u.CurrentCaseLoad)
	case models.FieldTotalCasesAssigned:
		u.TotalCasesAssigned = apply(u.TotalCasesAssigned)
	case models.FieldOverdueCases:
		u.OverdueCases = apply(u.OverdueCases)
	default:
		return fmt.Errorf("unknown counter field %q", field)
	}
	return nil
}

func (d *fakeUserDirectory) OverwriteWorkload(userID int64, caseLoad, overdueCases int) error {
	u, ok := d.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.CurrentCaseLoad = caseLoad
	u.OverdueCases = overdueCases
	return nil
}

func (d *fakeUserDirectory) RecordResolution(userID int64, resolutionMinutes float64, month, year int) error {
	u, ok := d.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	n := float64(u.TotalCasesResolved)
	u.AvgResolutionMinutes = (u.AvgResolutionMinutes*n + resolutionMinutes) / (n + 1)
	u.TotalCasesResolved++
	if u.CurrentCaseLoad > 0 {
		u.CurrentCaseLoad--
	}
	return nil
}

func (d *fakeUserDirectory) CountActiveUsers() (int, error) {
	n := 0
	for _, u := range d.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

// fakeQueue records queued notification requests
type fakeQueue struct {
	requests []*models.NotificationRequest
	err      error
}

func (q *fakeQueue) Queue(req *models.NotificationRequest) error {
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

// fakeNotificationStore is an in-memory NotificationStore
type fakeNotificationStore struct {
	notifications map[int64]*models.Notification
	nextID        int64
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{notifications: make(map[int64]*models.Notification)}
}

func (s *fakeNotificationStore) CreateNotification(n *models.Notification) error {
	s.nextID++
	n.NotificationID = s.nextID
	n.CreatedAt = time.Now().UTC()
	cp := *n
	s.notifications[n.NotificationID] = &cp
	return nil
}

func (s *fakeNotificationStore) GetPendingNotifications(limit int) ([]models.Notification, error) {
	now := time.Now().UTC()
	ids := make([]int64, 0, len(s.notifications))
	for id, n := range s.notifications {
		ready := n.Status == models.NotificationStatusPending ||
			(n.Status == models.NotificationStatusRetrying && (!n.NextRetryAt.Valid || !n.NextRetryAt.Time.After(now)))
		if ready {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.notifications[id])
	}
	return out, nil
}

func (s *fakeNotificationStore) UpdateNotificationStatus(notificationID int64, status models.NotificationStatus, errorMessage *string) error {
	n, ok := s.notifications[notificationID]
	if !ok {
		return errors.New("notification not found")
	}
	n.Status = status
	if errorMessage != nil {
		n.ErrorMessage.String, n.ErrorMessage.Valid = *errorMessage, true
	}
	return nil
}

func (s *fakeNotificationStore) ScheduleRetry(notificationID int64, nextRetryAt time.Time, errorMessage string) error {
	n, ok := s.notifications[notificationID]
	if !ok {
		return errors.New("notification not found")
	}
	n.Status = models.NotificationStatusRetrying
	n.RetryCount++
	n.NextRetryAt.Time, n.NextRetryAt.Valid = nextRetryAt, true
	n.ErrorMessage.String, n.ErrorMessage.Valid = errorMessage, true
	return nil
}
