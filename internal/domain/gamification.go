package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GamificationSchemaVersion is the version written by EncodeGamificationState.
// Version 1 is the legacy camelCase blob.
const GamificationSchemaVersion = 2

// DailyXP tracks XP earned per activity on a single calendar day. Earned
// stores pre-multiplier amounts so it never exceeds an activity's cap.
type DailyXP struct {
	Date   Date                 `json:"date"`
	Earned map[ActivityType]int `json:"earned"`
}

// Streak is a learner's run of consecutive active days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
	// LastActiveDate is zero when the learner has never been active.
	LastActiveDate Date `json:"last_active_date"`
}

// GamificationState is the persisted XP, level, streak and achievement record
// of a learner.
type GamificationState struct {
	LearnerID     uuid.UUID            `json:"-"`
	SchemaVersion int                  `json:"schema_version"`
	Version       int64                `json:"-"`
	TotalXP       int                  `json:"total_xp"`
	Level         int                  `json:"level"`
	DailyXP       DailyXP              `json:"daily_xp"`
	Streak        Streak               `json:"streak"`
	Achievements  map[string]time.Time `json:"achievements"`
}

// NewGamificationState returns the initial state of a learner.
func NewGamificationState(learnerID uuid.UUID) *GamificationState {
	return &GamificationState{
		LearnerID:     learnerID,
		SchemaVersion: GamificationSchemaVersion,
		Level:         1,
		DailyXP:       DailyXP{Earned: make(map[ActivityType]int)},
		Achievements:  make(map[string]time.Time),
	}
}

// Clone returns a deep copy so callers can mutate a working copy and discard it
// on failure.
func (s *GamificationState) Clone() *GamificationState {
	if s == nil {
		return nil
	}
	out := *s
	out.DailyXP.Earned = make(map[ActivityType]int, len(s.DailyXP.Earned))
	for k, v := range s.DailyXP.Earned {
		out.DailyXP.Earned[k] = v
	}
	out.Achievements = make(map[string]time.Time, len(s.Achievements))
	for k, v := range s.Achievements {
		out.Achievements[k] = v
	}
	return &out
}

// HasAchievement reports whether code is already unlocked.
func (s *GamificationState) HasAchievement(code string) bool {
	_, ok := s.Achievements[code]
	return ok
}

// Validate checks the invariants of the state.
func (s *GamificationState) Validate() error {
	if s.LearnerID == uuid.Nil {
		return NewValidationError("learner_id", "must be set", nil)
	}
	if s.TotalXP < 0 {
		return NewValidationError("total_xp", "must not be negative", nil)
	}
	if s.Level < 1 {
		return NewValidationError("level", "must be at least 1", nil)
	}
	if s.Streak.Current < 0 || s.Streak.Longest < s.Streak.Current {
		return NewValidationError("streak", "longest must be at least current and current non-negative", nil)
	}
	return nil
}

// normalize fills nil maps and enforces the level floor.
func (s *GamificationState) normalize() {
	if s.DailyXP.Earned == nil {
		s.DailyXP.Earned = make(map[ActivityType]int)
	}
	if s.Achievements == nil {
		s.Achievements = make(map[string]time.Time)
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.TotalXP < 0 {
		s.TotalXP = 0
	}
	if s.Streak.Longest < s.Streak.Current {
		s.Streak.Longest = s.Streak.Current
	}
	s.SchemaVersion = GamificationSchemaVersion
}

// EncodeGamificationState serialises the state in the current schema.
func EncodeGamificationState(s *GamificationState) ([]byte, error) {
	out := *s
	out.SchemaVersion = GamificationSchemaVersion
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode gamification state: %w", err)
	}
	return data, nil
}

// legacyGamificationState is the schema-1 record written before the state was
// versioned. Every field is optional.
type legacyGamificationState struct {
	TotalXP          int            `json:"totalXP"`
	Level            int            `json:"level"`
	DailyXPEarned    map[string]int `json:"dailyXPEarned"`
	DailyXPDate      Date           `json:"dailyXPDate"`
	CurrentStreak    int            `json:"currentStreak"`
	LongestStreak    int            `json:"longestStreak"`
	LastActivityDate Date           `json:"lastActivityDate"`
	Achievements     []struct {
		Code       string    `json:"code"`
		UnlockedAt time.Time `json:"unlockedAt"`
	} `json:"achievements"`
}

// DecodeGamificationState parses a stored blob of any known schema version.
// Absent keys take their zero value and the level is at least 1. An empty blob
// yields the initial state.
func DecodeGamificationState(learnerID uuid.UUID, data []byte) (*GamificationState, error) {
	if len(data) == 0 || string(data) == "null" {
		return NewGamificationState(learnerID), nil
	}

	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: gamification state: %v", ErrInvalidFormat, err)
	}

	var state *GamificationState
	if probe.SchemaVersion >= 2 {
		state = &GamificationState{}
		if err := json.Unmarshal(data, state); err != nil {
			return nil, fmt.Errorf("%w: gamification state: %v", ErrInvalidFormat, err)
		}
	} else {
		var legacy legacyGamificationState
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: legacy gamification state: %v", ErrInvalidFormat, err)
		}
		state = fromLegacy(&legacy)
	}

	state.LearnerID = learnerID
	state.normalize()
	return state, nil
}

func fromLegacy(l *legacyGamificationState) *GamificationState {
	s := &GamificationState{
		TotalXP: l.TotalXP,
		Level:   l.Level,
		DailyXP: DailyXP{
			Date:   l.DailyXPDate,
			Earned: make(map[ActivityType]int, len(l.DailyXPEarned)),
		},
		Streak: Streak{
			Current:        l.CurrentStreak,
			Longest:        l.LongestStreak,
			LastActiveDate: l.LastActivityDate,
		},
		Achievements: make(map[string]time.Time, len(l.Achievements)),
	}
	for k, v := range l.DailyXPEarned {
		s.DailyXP.Earned[ActivityType(k)] = v
	}
	for _, a := range l.Achievements {
		if a.Code == "" {
			continue
		}
		s.Achievements[a.Code] = a.UnlockedAt.UTC()
	}
	return s
}
