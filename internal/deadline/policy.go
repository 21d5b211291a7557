// Package deadline computes when each week's picks lock.
package deadline

import "time"

// DefaultBase is the week 1 lock instant: Saturday 2025-06-07 18:00 UTC
var DefaultBase = time.Date(2025, time.June, 7, 18, 0, 0, 0, time.UTC)

// Week is the distance between consecutive deadlines
const Week = 7 * 24 * time.Hour

// MaxWeek is the last week a pick or result can name
const MaxWeek = 52

// ValidWeek reports whether week is within 1..MaxWeek
func ValidWeek(week int) bool {
	return week >= 1 && week <= MaxWeek
}

// State of a week relative to its deadline
type State string

// Week states
const (
	Open   State = "open"   // now <= deadline
	Locked State = "locked" // now > deadline
)

// Policy maps a week number to its lock instant. It holds no per-week state.
type Policy struct {
	base        time.Time
	now         func() time.Time
	lockNewPick bool
}

// Option customizes a Policy
type Option func(*Policy)

// WithClock replaces the wall clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// WithLockNewPicks sets whether initial submissions are gated as well as edits
func WithLockNewPicks(lock bool) Option {
	return func(p *Policy) { p.lockNewPick = lock }
}

// NewPolicy creates a policy whose week 1 deadline is base
func NewPolicy(base time.Time, opts ...Option) *Policy {
	p := &Policy{base: base.UTC(), now: time.Now, lockNewPick: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeadlineFor returns base + (week-1) weeks. Callers bound week with ValidWeek.
func (p *Policy) DeadlineFor(week int) time.Time {
	return p.base.AddDate(0, 0, 7*(week-1))
}

// StateAt reports whether week is open at the given instant
func (p *Policy) StateAt(week int, at time.Time) State {
	if at.After(p.DeadlineFor(week)) {
		return Locked
	}
	return Open
}

// State reports whether week is open right now
func (p *Policy) State(week int) State {
	return p.StateAt(week, p.now())
}

// IsLocked is shorthand for State(week) == Locked
func (p *Policy) IsLocked(week int) bool {
	return p.State(week) == Locked
}

// LocksNewPicks reports whether submissions, not only edits, respect the deadline
func (p *Policy) LocksNewPicks() bool {
	return p.lockNewPick
}

// Now returns the policy's current time
func (p *Policy) Now() time.Time {
	return p.now()
}
