package gamification

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// UnknownRequirement reports a requirement key the stats snapshot does not
// know. Such requirements count as satisfied.
type UnknownRequirement struct {
	AchievementCode string
	Key             string
}

// Unlock is one achievement unlocked by CheckAndUnlock together with the XP
// its reward produced.
type Unlock struct {
	Achievement domain.UnlockedAchievement
	Definition  domain.AchievementDefinition
	Award       XPAward
}

// CheckResult is the outcome of one evaluation pass.
type CheckResult struct {
	Unlocked    []Unlock
	UnknownKeys []UnknownRequirement
}

// SubjectResolver maps a subject code to its ID. It returns nil for codes it
// does not know.
type SubjectResolver func(code string) *uuid.UUID

// AchievementEngine evaluates achievement definitions against learner stats.
type AchievementEngine struct {
	definitions []domain.AchievementDefinition
	ledger      *Ledger
}

// NewAchievementEngine creates an engine that pays rewards through ledger.
func NewAchievementEngine(definitions []domain.AchievementDefinition, ledger *Ledger) *AchievementEngine {
	return &AchievementEngine{definitions: definitions, ledger: ledger}
}

// Definitions returns the definitions the engine evaluates, in order.
func (e *AchievementEngine) Definitions() []domain.AchievementDefinition {
	return e.definitions
}

// CheckAndUnlock unlocks every active definition not yet held in state whose
// requirements are all met by stats. Each unlock is recorded in state at now
// and its XP reward is credited as achievement_unlocked without multiplier.
// state is modified in place.
//
// All definitions are evaluated against the same stats snapshot, so XP paid
// out by one unlock does not cascade into another within the same call.
func (e *AchievementEngine) CheckAndUnlock(
	state *domain.GamificationState,
	stats domain.LearnerStats,
	now time.Time,
	today domain.Date,
	resolve SubjectResolver,
) (CheckResult, error) {
	result := CheckResult{Unlocked: []Unlock{}}

	for _, def := range e.definitions {
		if !def.Active || state.HasAchievement(def.Code) {
			continue
		}

		met, unknown := requirementsMet(def, stats)
		result.UnknownKeys = append(result.UnknownKeys, unknown...)
		if !met {
			continue
		}

		unlockedAt := now.UTC()
		state.Achievements[def.Code] = unlockedAt
		unlock := Unlock{
			Achievement: domain.UnlockedAchievement{Code: def.Code, UnlockedAt: unlockedAt},
			Definition:  def,
		}

		if def.XPReward > 0 {
			var subjectID *uuid.UUID
			if def.SubjectCode != "" && resolve != nil {
				subjectID = resolve(def.SubjectCode)
			}
			award, err := e.ledger.Award(state, AwardRequest{
				Activity:  domain.ActivityAchievementUnlocked,
				Amount:    def.XPReward,
				SubjectID: subjectID,
			}, today)
			if err != nil {
				return CheckResult{}, fmt.Errorf("award reward for %q: %w", def.Code, err)
			}
			unlock.Award = award
		}

		result.Unlocked = append(result.Unlocked, unlock)
	}

	return result, nil
}

// requirementsMet ANDs every requirement of def. Unknown keys are satisfied
// and reported back.
func requirementsMet(def domain.AchievementDefinition, stats domain.LearnerStats) (bool, []UnknownRequirement) {
	var unknown []UnknownRequirement
	met := true
	for _, key := range sortedKeys(def.Requirements) {
		value, ok := stats.Lookup(def.SubjectCode, key)
		if !ok {
			unknown = append(unknown, UnknownRequirement{AchievementCode: def.Code, Key: key})
			continue
		}
		if value < def.Requirements[key] {
			met = false
		}
	}
	return met, unknown
}

// ProgressTowards reports progress on def as a percentage and a
// "current/target unit" label. Only the first requirement key (in sorted
// order) known to stats is shown, even when def has several; unlocking still
// requires all of them. An unlocked definition reports 100.
func ProgressTowards(def domain.AchievementDefinition, stats domain.LearnerStats, unlocked bool) (int, string) {
	keys := sortedKeys(def.Requirements)
	if len(keys) == 0 {
		if unlocked {
			return 100, ""
		}
		return 0, ""
	}

	key := keys[0]
	current, found := 0.0, false
	for _, k := range keys {
		if v, ok := stats.Lookup(def.SubjectCode, k); ok {
			key, current, found = k, v, true
			break
		}
	}

	target := def.Requirements[key]
	label := fmt.Sprintf("%s/%s %s", formatStat(current), formatStat(target), unitFor(key))

	if unlocked || target <= 0 {
		return 100, label
	}
	if !found {
		return 0, label
	}

	pct := int(math.Floor(100 * current / target))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, label
}

var statUnits = map[string]string{
	domain.StatTotalXP:            "XP",
	domain.StatLevel:              "level",
	domain.StatCurrentStreak:      "days",
	domain.StatLongestStreak:      "days",
	domain.StatSessionsCompleted:  "sessions",
	domain.StatFlashcardsReviewed: "flashcards",
	domain.StatFlashcardsCorrect:  "correct answers",
	domain.StatPerfectSessions:    "perfect sessions",
	domain.StatNotesUploaded:      "notes",
	domain.StatStudyMinutes:       "minutes",
	domain.StatSubjectXP:          "XP",
	domain.StatMasteryPercent:     "% mastery",
}

func unitFor(key string) string {
	if unit, ok := statUnits[key]; ok {
		return unit
	}
	return strings.ReplaceAll(key, "_", " ")
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
