package service

import (
	"time"

	"caseflow/models"
)

// SLAPolicy maps case priority to a response-time window. Pure computation,
// no state beyond the optional test override.
type SLAPolicy struct {
	// overrideMinutes shrinks every window to N minutes when > 0, so pilots
	// can watch the full breach/escalate cycle without waiting hours.
	overrideMinutes int
}

// NewSLAPolicy creates an SLA policy. overrideMinutes = 0 disables the override.
func NewSLAPolicy(overrideMinutes int) *SLAPolicy {
	return &SLAPolicy{overrideMinutes: overrideMinutes}
}

// ResponseWindow returns the response deadline duration for a priority.
// Unknown priorities fall back to the P3 window.
func (p *SLAPolicy) ResponseWindow(priority models.CasePriority) time.Duration {
	if p.overrideMinutes > 0 {
		return time.Duration(p.overrideMinutes) * time.Minute
	}

	switch priority {
	case models.PriorityP1:
		return 1 * time.Hour
	case models.PriorityP2:
		return 4 * time.Hour
	case models.PriorityP3:
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// DueDate computes the SLA due date for a case created or re-prioritized at
// the given time. Priority edits recompute from the edit time, not creation
// time; the clock resets on every priority change.
func (p *SLAPolicy) DueDate(from time.Time, priority models.CasePriority) time.Time {
	return from.Add(p.ResponseWindow(priority))
}
