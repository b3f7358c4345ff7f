package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/store"
)

// ReferenceStore implements store.ReferenceDataStore. Subjects and
// achievement definitions live in the database so they can be edited at
// runtime; the numeric rule tables come from the configured rule set.
type ReferenceStore struct {
	db     store.DBTX
	rules  *gamification.RuleSet
	logger *slog.Logger
}

var _ store.ReferenceDataStore = (*ReferenceStore)(nil)

// NewReferenceStore creates a ReferenceStore.
func NewReferenceStore(db store.DBTX, rules *gamification.RuleSet, logger *slog.Logger) *ReferenceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if rules == nil {
		panic("rules cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceStore{
		db:     db,
		rules:  rules,
		logger: logger.With(slog.String("component", "reference_store")),
	}
}

func (s *ReferenceStore) GetActivityRules(context.Context) ([]gamification.ActivityRule, error) {
	return s.rules.Activities, nil
}

func (s *ReferenceStore) GetLevelTable(context.Context) (gamification.LevelTable, error) {
	return s.rules.Levels, nil
}

func (s *ReferenceStore) GetStreakMultiplierTable(context.Context) (gamification.StreakMultiplierTable, error) {
	return s.rules.StreakMultipliers, nil
}

func (s *ReferenceStore) GetStreakMilestones(context.Context) ([]int, error) {
	return s.rules.StreakMilestones, nil
}

func (s *ReferenceStore) GetSessionXPRules(context.Context) (gamification.SessionXPRules, error) {
	return s.rules.SessionXP, nil
}

// GetAchievementDefinitions returns every definition, active or not, ordered by code.
func (s *ReferenceStore) GetAchievementDefinitions(ctx context.Context) ([]domain.AchievementDefinition, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, description, category, requirements, xp_reward, COALESCE(subject_code, ''), active
		FROM achievement_definitions
		ORDER BY code
	`)
	if err != nil {
		log.Error("failed to load achievement definitions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var defs []domain.AchievementDefinition
	for rows.Next() {
		var (
			def          domain.AchievementDefinition
			requirements []byte
		)
		if err := rows.Scan(
			&def.Code,
			&def.Name,
			&def.Description,
			&def.Category,
			&requirements,
			&def.XPReward,
			&def.SubjectCode,
			&def.Active,
		); err != nil {
			return nil, MapError(err)
		}
		if err := json.Unmarshal(requirements, &def.Requirements); err != nil {
			return nil, fmt.Errorf("%w: requirements of achievement %s: %v", domain.ErrInvalidFormat, def.Code, err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return defs, nil
}

// GetSubjects returns the subject catalogue ordered by code.
func (s *ReferenceStore) GetSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM subjects ORDER BY code`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var subjects []domain.Subject
	for rows.Next() {
		var subj domain.Subject
		if err := rows.Scan(&subj.ID, &subj.Code, &subj.Name); err != nil {
			return nil, MapError(err)
		}
		subjects = append(subjects, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return subjects, nil
}

// SeedAchievements inserts definitions that are not in the table yet.
// Existing rows are left alone so edits made in the database survive restarts.
// It returns the number of rows inserted.
func SeedAchievements(ctx context.Context, db store.DBTX, defs []domain.AchievementDefinition) (int, error) {
	inserted := 0
	for _, def := range defs {
		requirements, err := json.Marshal(def.Requirements)
		if err != nil {
			return inserted, fmt.Errorf("encode requirements of achievement %s: %w", def.Code, err)
		}
		var subjectCode any
		if def.SubjectCode != "" {
			subjectCode = def.SubjectCode
		}
		result, err := db.ExecContext(ctx, `
			INSERT INTO achievement_definitions
				(code, name, description, category, requirements, xp_reward, subject_code, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (code) DO NOTHING
		`, def.Code, def.Name, def.Description, def.Category, requirements, def.XPReward, subjectCode, def.Active)
		if err != nil {
			return inserted, MapError(err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}
