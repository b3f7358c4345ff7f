package gamification

import "github.com/dunskii/studyhub/internal/domain"

// StreakUpdate is the result of recording a day of activity.
type StreakUpdate struct {
	Streak            domain.Streak `json:"streak"`
	MilestonesReached []int         `json:"milestones_reached"`
	// Changed is false when the activity fell on a day already counted.
	Changed bool `json:"changed"`
	// Reset is true when a gap of more than one day restarted the streak.
	Reset bool `json:"reset"`
}

// StreakTracker applies consecutive-day rules and reports milestones.
type StreakTracker struct {
	milestones  []int
	multipliers StreakMultiplierTable
}

// NewStreakTracker creates a tracker. milestones must be ascending and
// multipliers sorted by MinStreak, as ParseRuleSet guarantees.
func NewStreakTracker(milestones []int, multipliers StreakMultiplierTable) *StreakTracker {
	return &StreakTracker{milestones: milestones, multipliers: multipliers}
}

// RecordActivity returns the streak after activity on date. The input streak
// is not modified. A second call for the same date is a no-op with no
// milestones.
func (t *StreakTracker) RecordActivity(streak domain.Streak, date domain.Date) StreakUpdate {
	next := streak
	update := StreakUpdate{Changed: true}

	switch {
	case streak.LastActiveDate.IsZero():
		next.Current = 1
	default:
		gap := domain.DaysBetween(streak.LastActiveDate, date)
		switch {
		case gap <= 0:
			// Same day, or an event dated before the last recorded day.
			return StreakUpdate{Streak: streak, MilestonesReached: []int{}}
		case gap == 1:
			next.Current = streak.Current + 1
		default:
			next.Current = 1
			update.Reset = true
		}
	}

	next.LastActiveDate = date
	if next.Current > next.Longest {
		next.Longest = next.Current
	}

	update.Streak = next
	update.MilestonesReached = t.milestonesAt(next.Current)
	return update
}

// CurrentStreak returns the streak length to display on today. A streak whose
// last active day is more than one day ago is already broken and reads as 0.
func (t *StreakTracker) CurrentStreak(streak domain.Streak, today domain.Date) int {
	if streak.LastActiveDate.IsZero() {
		return 0
	}
	if domain.DaysBetween(streak.LastActiveDate, today) > 1 {
		return 0
	}
	return streak.Current
}

// MultiplierForStreak maps a streak length to its XP multiplier. It is 1.0
// below the first step and never exceeds MaxMultiplier.
func (t *StreakTracker) MultiplierForStreak(streak int) float64 {
	return t.multipliers.For(streak)
}

// NextMilestone returns the smallest milestone above current, if any.
func (t *StreakTracker) NextMilestone(current int) (int, bool) {
	for _, m := range t.milestones {
		if m > current {
			return m, true
		}
	}
	return 0, false
}

func (t *StreakTracker) milestonesAt(streak int) []int {
	reached := []int{}
	for _, m := range t.milestones {
		if m == streak {
			reached = append(reached, m)
		}
	}
	return reached
}

// For returns the multiplier of the highest step whose MinStreak is reached.
func (t StreakMultiplierTable) For(streak int) float64 {
	multiplier := 1.0
	for _, step := range t {
		if streak >= step.MinStreak && step.Multiplier > multiplier {
			multiplier = step.Multiplier
		}
	}
	if multiplier > MaxMultiplier {
		multiplier = MaxMultiplier
	}
	return multiplier
}
