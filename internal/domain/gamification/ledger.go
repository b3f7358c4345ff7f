package gamification

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// AwardRequest asks the ledger to credit XP for one activity.
type AwardRequest struct {
	Activity        domain.ActivityType
	Amount          int
	SubjectID       *uuid.UUID
	ApplyMultiplier bool
}

// XPAward is the outcome of a single ledger credit.
type XPAward struct {
	Activity domain.ActivityType `json:"activity_type"`
	// RequestedXP is the amount asked for; CappedXP is what remained of it
	// under the daily cap, before the multiplier.
	RequestedXP       int        `json:"requested_xp"`
	CappedXP          int        `json:"capped_xp"`
	XPEarned          int        `json:"xp_earned"`
	MultiplierApplied float64    `json:"multiplier_applied"`
	NewTotal          int        `json:"new_total"`
	PreviousLevel     int        `json:"previous_level"`
	NewLevel          int        `json:"new_level"`
	LevelUp           bool       `json:"level_up"`
	SubjectID         *uuid.UUID `json:"subject_id,omitempty"`
	// UnknownActivity is set when no rule exists for Activity. The award is
	// then a no-op.
	UnknownActivity bool `json:"-"`
}

// Ledger credits XP against a gamification state, enforcing daily caps and
// the streak multiplier.
type Ledger struct {
	rules   *RuleSet
	levels  *LevelCalculator
	streaks *StreakTracker
}

// NewLedger builds a ledger and its level and streak calculators from rules.
func NewLedger(rules *RuleSet) *Ledger {
	return &Ledger{
		rules:   rules,
		levels:  NewLevelCalculator(rules.Levels),
		streaks: NewStreakTracker(rules.StreakMilestones, rules.StreakMultipliers),
	}
}

// Levels returns the level calculator the ledger uses.
func (l *Ledger) Levels() *LevelCalculator {
	return l.levels
}

// Streaks returns the streak tracker the ledger uses.
func (l *Ledger) Streaks() *StreakTracker {
	return l.streaks
}

// Rules returns the rule set the ledger was built from.
func (l *Ledger) Rules() *RuleSet {
	return l.rules
}

// Award credits req against state, which is modified in place; callers pass a
// working copy. today scopes the daily cap counters.
//
// A negative amount is rejected before anything changes. An unknown activity
// or an exhausted cap yields a zero award and leaves totals untouched.
func (l *Ledger) Award(state *domain.GamificationState, req AwardRequest, today domain.Date) (XPAward, error) {
	if req.Amount < 0 {
		return XPAward{}, domain.NewInvalidInputError(
			"amount", fmt.Sprintf("XP amount must not be negative, got %d", req.Amount))
	}

	award := XPAward{
		Activity:          req.Activity,
		RequestedXP:       req.Amount,
		MultiplierApplied: 1.0,
		NewTotal:          state.TotalXP,
		PreviousLevel:     state.Level,
		NewLevel:          state.Level,
		SubjectID:         req.SubjectID,
	}

	rule, ok := l.rules.Activity(req.Activity)
	if !ok {
		award.UnknownActivity = true
		return award, nil
	}

	l.rollDailyCounters(state, today)

	actual := req.Amount
	if rule.MaxPerDay != nil {
		remaining := *rule.MaxPerDay - state.DailyXP.Earned[req.Activity]
		if remaining < 0 {
			remaining = 0
		}
		if actual > remaining {
			actual = remaining
		}
	}
	if actual == 0 {
		return award, nil
	}

	if req.ApplyMultiplier {
		award.MultiplierApplied = l.streaks.MultiplierForStreak(l.streaks.CurrentStreak(state.Streak, today))
	}

	award.CappedXP = actual
	award.XPEarned = applyMultiplier(actual, award.MultiplierApplied)

	state.DailyXP.Earned[req.Activity] += actual
	state.TotalXP += award.XPEarned
	state.Level = l.levels.LevelForXP(state.TotalXP)

	award.NewTotal = state.TotalXP
	award.NewLevel = state.Level
	award.LevelUp = award.NewLevel > award.PreviousLevel

	return award, nil
}

// DailyRemaining reports how much XP of activity can still be earned today.
// The boolean is false for uncapped or unknown activities.
func (l *Ledger) DailyRemaining(state *domain.GamificationState, activity domain.ActivityType, today domain.Date) (int, bool) {
	rule, ok := l.rules.Activity(activity)
	if !ok || rule.MaxPerDay == nil {
		return 0, false
	}
	earned := 0
	if state.DailyXP.Date.Equal(today) {
		earned = state.DailyXP.Earned[activity]
	}
	remaining := *rule.MaxPerDay - earned
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// SessionXP prices a completed session with the session rules, without the
// perfect-session bonus. That bonus is credited separately under
// ActivityPerfectSession so its own daily cap applies; see PerfectSessionXP.
func (l *Ledger) SessionXP(session domain.StudySession) int {
	r := l.rules.SessionXP
	xp := session.FlashcardsReviewed*r.PerFlashcard + session.FlashcardsCorrect*r.PerCorrect
	return xp + r.CompletionBonus
}

// PerfectSessionXP is the bonus for a session with every attempted flashcard
// answered correctly, and 0 otherwise.
func (l *Ledger) PerfectSessionXP(session domain.StudySession) int {
	if !session.IsPerfect() {
		return 0
	}
	return l.rules.SessionXP.PerfectBonus
}

// applyMultiplier floors amount*multiplier. The epsilon keeps products such as
// 10*1.1 from flooring to one below the exact decimal result.
func applyMultiplier(amount int, multiplier float64) int {
	return int(math.Floor(float64(amount)*multiplier + 1e-9))
}

// rollDailyCounters clears the per-activity counters when they belong to an
// earlier day.
func (l *Ledger) rollDailyCounters(state *domain.GamificationState, today domain.Date) {
	if state.DailyXP.Earned == nil {
		state.DailyXP.Earned = make(map[domain.ActivityType]int)
	}
	if state.DailyXP.Date.Equal(today) {
		return
	}
	state.DailyXP.Date = today
	for k := range state.DailyXP.Earned {
		delete(state.DailyXP.Earned, k)
	}
}
