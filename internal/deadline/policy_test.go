package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDeadlineFor(t *testing.T) {
	p := NewPolicy(DefaultBase)

	assert.Equal(t, time.Date(2025, 6, 7, 18, 0, 0, 0, time.UTC), p.DeadlineFor(1))
	assert.Equal(t, time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC), p.DeadlineFor(2))
	assert.Equal(t, DefaultBase.Add(17*Week), p.DeadlineFor(18))
}

func TestDeadlineAtMaxWeek(t *testing.T) {
	p := NewPolicy(DefaultBase, WithClock(fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))

	last := p.DeadlineFor(MaxWeek)
	assert.Equal(t, time.Date(2026, 5, 30, 18, 0, 0, 0, time.UTC), last)
	assert.True(t, last.After(p.DeadlineFor(MaxWeek-1)))
	assert.False(t, p.IsLocked(MaxWeek))
	assert.True(t, p.IsLocked(1))
}

func TestValidWeek(t *testing.T) {
	testCases := []struct {
		week int
		want bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{MaxWeek, true},
		{MaxWeek + 1, false},
		{15300, false},
		{1 << 30, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ValidWeek(tc.week), "week %d", tc.week)
	}
}

func TestStateAt(t *testing.T) {
	p := NewPolicy(DefaultBase)
	deadline := p.DeadlineFor(3)

	testCases := []struct {
		name string
		at   time.Time
		want State
	}{
		{"well before", deadline.Add(-72 * time.Hour), Open},
		{"exactly at deadline", deadline, Open},
		{"one nanosecond after", deadline.Add(time.Nanosecond), Locked},
		{"next week", deadline.Add(Week), Locked},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.StateAt(3, tc.at))
		})
	}
}

func TestStateUsesClock(t *testing.T) {
	now := DefaultBase.Add(time.Hour)
	p := NewPolicy(DefaultBase, WithClock(fixedClock(now)))

	assert.True(t, p.IsLocked(1))
	assert.False(t, p.IsLocked(2))
	assert.Equal(t, now, p.Now())
}

func TestLockNewPicksOption(t *testing.T) {
	assert.True(t, NewPolicy(DefaultBase).LocksNewPicks())
	assert.False(t, NewPolicy(DefaultBase, WithLockNewPicks(false)).LocksNewPicks())
}

func TestBaseIsNormalizedToUTC(t *testing.T) {
	eastern := time.FixedZone("EDT", -4*3600)
	p := NewPolicy(time.Date(2025, 6, 7, 14, 0, 0, 0, eastern))

	assert.True(t, p.DeadlineFor(1).Equal(DefaultBase))
	assert.Equal(t, time.UTC, p.DeadlineFor(1).Location())
}
