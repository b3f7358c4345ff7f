package gamification

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dunskii/studyhub/internal/domain"
)

// MaxMultiplier is the ceiling of the streak multiplier table.
const MaxMultiplier = 1.5

// maxRulesFileSize bounds the size of an override rules file (1MB).
const maxRulesFileSize = 1024 * 1024

//go:embed rules.yaml
var defaultRulesYAML []byte

// ErrInvalidRuleSet is returned when a rule set fails validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// ActivityRule configures XP for one activity type. A nil MaxPerDay means the
// activity is uncapped.
type ActivityRule struct {
	Type        domain.ActivityType `yaml:"type" json:"type"`
	BaseXP      int                 `yaml:"base_xp" json:"base_xp"`
	MaxPerDay   *int                `yaml:"max_per_day" json:"max_per_day,omitempty"`
	Description string              `yaml:"description" json:"description"`
}

// LevelTable maps cumulative XP to levels. Thresholds[i] is the XP needed for
// level i+1.
type LevelTable struct {
	Thresholds    []int                     `yaml:"thresholds" json:"thresholds"`
	Titles        map[int]string            `yaml:"titles" json:"titles"`
	SubjectTitles map[string]map[int]string `yaml:"subject_titles" json:"subject_titles,omitempty"`
}

// MultiplierStep applies Multiplier once a streak reaches MinStreak.
type MultiplierStep struct {
	MinStreak  int     `yaml:"min_streak" json:"min_streak"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// StreakMultiplierTable is an ascending step function from streak length to
// XP multiplier.
type StreakMultiplierTable []MultiplierStep

// SessionXPRules prices the parts of a completed study session.
type SessionXPRules struct {
	PerFlashcard    int `yaml:"per_flashcard" json:"per_flashcard"`
	PerCorrect      int `yaml:"per_correct" json:"per_correct"`
	PerfectBonus    int `yaml:"perfect_bonus" json:"perfect_bonus"`
	CompletionBonus int `yaml:"completion_bonus" json:"completion_bonus"`
}

// RuleSet is the complete, read-only reference data of the engine.
type RuleSet struct {
	Activities        []ActivityRule                 `yaml:"activities"`
	Levels            LevelTable                     `yaml:"levels"`
	StreakMultipliers StreakMultiplierTable          `yaml:"streak_multipliers"`
	StreakMilestones  []int                          `yaml:"streak_milestones"`
	SessionXP         SessionXPRules                 `yaml:"session_xp"`
	Achievements      []domain.AchievementDefinition `yaml:"achievements"`
}

// DefaultRuleSet parses the embedded rule table.
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRulesYAML)
}

// MustDefaultRuleSet is DefaultRuleSet for tests and static initialisation.
func MustDefaultRuleSet() *RuleSet {
	rules, err := DefaultRuleSet()
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml is invalid: %v", err))
	}
	return rules
}

// LoadRuleSet reads a rule set from path. An empty path returns the embedded
// defaults.
func LoadRuleSet(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRuleSet()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat rules file %q: %w", path, err)
	}
	if info.Size() > maxRulesFileSize {
		return nil, fmt.Errorf("%w: rules file %q is %d bytes, limit is %d",
			ErrInvalidRuleSet, path, info.Size(), maxRulesFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	return ParseRuleSet(data)
}

// ParseRuleSet decodes and validates a YAML rule set.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	sort.Slice(rules.StreakMultipliers, func(i, j int) bool {
		return rules.StreakMultipliers[i].MinStreak < rules.StreakMultipliers[j].MinStreak
	})
	return &rules, nil
}

// Validate checks the structural invariants of the rule set.
func (r *RuleSet) Validate() error {
	if err := r.validateActivities(); err != nil {
		return err
	}
	if err := r.Levels.Validate(); err != nil {
		return err
	}
	if err := r.StreakMultipliers.Validate(); err != nil {
		return err
	}
	for i, m := range r.StreakMilestones {
		if m < 1 {
			return invalidRules("streak milestone %d must be positive", m)
		}
		if i > 0 && m <= r.StreakMilestones[i-1] {
			return invalidRules("streak milestones must be strictly ascending")
		}
	}
	s := r.SessionXP
	if s.PerFlashcard < 0 || s.PerCorrect < 0 || s.PerfectBonus < 0 || s.CompletionBonus < 0 {
		return invalidRules("session XP values must not be negative")
	}
	return r.validateAchievements()
}

func (r *RuleSet) validateActivities() error {
	seen := make(map[domain.ActivityType]struct{}, len(r.Activities))
	for _, a := range r.Activities {
		if a.Type == "" {
			return invalidRules("activity rule without type")
		}
		if _, dup := seen[a.Type]; dup {
			return invalidRules("duplicate activity type %q", a.Type)
		}
		seen[a.Type] = struct{}{}
		if a.BaseXP < 0 {
			return invalidRules("activity %q has negative base XP", a.Type)
		}
		if a.MaxPerDay != nil && *a.MaxPerDay < 0 {
			return invalidRules("activity %q has negative daily cap", a.Type)
		}
	}
	return nil
}

func (r *RuleSet) validateAchievements() error {
	seen := make(map[string]struct{}, len(r.Achievements))
	for _, a := range r.Achievements {
		if a.Code == "" {
			return invalidRules("achievement without code")
		}
		if _, dup := seen[a.Code]; dup {
			return invalidRules("duplicate achievement code %q", a.Code)
		}
		seen[a.Code] = struct{}{}
		if a.XPReward < 0 {
			return invalidRules("achievement %q has negative XP reward", a.Code)
		}
		if len(a.Requirements) == 0 {
			return invalidRules("achievement %q has no requirements", a.Code)
		}
	}
	return nil
}

// Validate checks that thresholds start at 0 and strictly increase.
func (t LevelTable) Validate() error {
	if len(t.Thresholds) == 0 {
		return invalidRules("level table has no thresholds")
	}
	if t.Thresholds[0] != 0 {
		return invalidRules("first level threshold must be 0, got %d", t.Thresholds[0])
	}
	for i := 1; i < len(t.Thresholds); i++ {
		if t.Thresholds[i] <= t.Thresholds[i-1] {
			return invalidRules("level thresholds must be strictly increasing at level %d", i+1)
		}
	}
	return nil
}

// Validate checks that the multiplier steps are non-decreasing and capped.
func (t StreakMultiplierTable) Validate() error {
	steps := make(StreakMultiplierTable, len(t))
	copy(steps, t)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinStreak < steps[j].MinStreak })

	for i, s := range steps {
		if s.MinStreak < 0 {
			return invalidRules("multiplier step has negative streak %d", s.MinStreak)
		}
		if s.Multiplier < 1.0 || s.Multiplier > MaxMultiplier {
			return invalidRules("multiplier %.2f for streak %d outside [1.0, %.1f]",
				s.Multiplier, s.MinStreak, MaxMultiplier)
		}
		if i > 0 {
			if s.MinStreak == steps[i-1].MinStreak {
				return invalidRules("duplicate multiplier step for streak %d", s.MinStreak)
			}
			if s.Multiplier < steps[i-1].Multiplier {
				return invalidRules("multiplier decreases at streak %d", s.MinStreak)
			}
		}
	}
	return nil
}

// Activity returns the rule for an activity type.
func (r *RuleSet) Activity(activity domain.ActivityType) (ActivityRule, bool) {
	for _, a := range r.Activities {
		if a.Type == activity {
			return a, true
		}
	}
	return ActivityRule{}, false
}

// Achievement returns the definition with the given code.
func (r *RuleSet) Achievement(code string) (domain.AchievementDefinition, bool) {
	for _, a := range r.Achievements {
		if a.Code == code {
			return a, true
		}
	}
	return domain.AchievementDefinition{}, false
}

func invalidRules(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRuleSet, fmt.Sprintf(format, args...))
}
