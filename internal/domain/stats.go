package domain

// Statistic keys understood by achievement requirements.
const (
	StatTotalXP            = "total_xp"
	StatLevel              = "level"
	StatCurrentStreak      = "current_streak"
	StatLongestStreak      = "longest_streak"
	StatSessionsCompleted  = "sessions_completed"
	StatFlashcardsReviewed = "flashcards_reviewed"
	StatFlashcardsCorrect  = "flashcards_correct"
	StatPerfectSessions    = "perfect_sessions"
	StatNotesUploaded      = "notes_uploaded"
	StatStudyMinutes       = "study_minutes"
	StatSubjectXP          = "subject_xp"
	StatMasteryPercent     = "mastery_percent"
)

var knownStats = map[string]struct{}{
	StatTotalXP: {}, StatLevel: {}, StatCurrentStreak: {}, StatLongestStreak: {},
	StatSessionsCompleted: {}, StatFlashcardsReviewed: {}, StatFlashcardsCorrect: {},
	StatPerfectSessions: {}, StatNotesUploaded: {}, StatStudyMinutes: {},
	StatSubjectXP: {}, StatMasteryPercent: {},
}

// learnerWideStats are tracked once per learner and never per subject.
var learnerWideStats = map[string]struct{}{
	StatTotalXP: {}, StatLevel: {}, StatCurrentStreak: {}, StatLongestStreak: {},
}

// IsKnownStat reports whether key is one of the built-in statistic keys.
func IsKnownStat(key string) bool {
	_, ok := knownStats[key]
	return ok
}

// LearnerStats is a snapshot of a learner's aggregate statistics. Subjects
// holds the same kind of keys restricted to a single subject code.
type LearnerStats struct {
	Values   map[string]float64            `json:"values"`
	Subjects map[string]map[string]float64 `json:"subjects"`
}

// NewLearnerStats returns an empty snapshot.
func NewLearnerStats() LearnerStats {
	return LearnerStats{
		Values:   make(map[string]float64),
		Subjects: make(map[string]map[string]float64),
	}
}

// Lookup returns the value of key, scoped to subjectCode when it is non-empty.
// Learner-wide keys (XP total, level, streaks) always read the global values,
// and keys that are not built in fall back to them when the subject has no
// entry. A built-in key with no recorded value reads as 0. The boolean is
// false only for keys that are neither built in nor present in the snapshot.
func (s LearnerStats) Lookup(subjectCode, key string) (float64, bool) {
	if _, global := learnerWideStats[key]; subjectCode != "" && !global {
		if v, ok := s.Subjects[subjectCode][key]; ok {
			return v, true
		}
		if IsKnownStat(key) {
			return 0, true
		}
	}
	if v, ok := s.Values[key]; ok {
		return v, true
	}
	return 0, IsKnownStat(key)
}

// WithOverlay returns a copy of s with the given global values replaced.
func (s LearnerStats) WithOverlay(values map[string]float64) LearnerStats {
	out := NewLearnerStats()
	for k, v := range s.Values {
		out.Values[k] = v
	}
	for k, v := range values {
		out.Values[k] = v
	}
	for code, scoped := range s.Subjects {
		m := make(map[string]float64, len(scoped))
		for k, v := range scoped {
			m[k] = v
		}
		out.Subjects[code] = m
	}
	return out
}
