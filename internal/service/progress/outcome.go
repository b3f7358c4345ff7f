package progress

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
)

// OutcomeResult reports a curriculum outcome transition in one subject.
type OutcomeResult struct {
	SubjectID          uuid.UUID `json:"subject_id"`
	Outcome            string    `json:"outcome"`
	Changed            bool      `json:"changed"`
	OutcomesCompleted  int       `json:"outcomes_completed"`
	OutcomesInProgress int       `json:"outcomes_in_progress"`
	// Award is set when completing the outcome credited XP.
	Award *gamification.XPAward `json:"award,omitempty"`
}

// OutcomeStarted implements Service.OutcomeStarted.
func (s *service) OutcomeStarted(ctx context.Context, learnerID, subjectID uuid.UUID, outcome string) (*OutcomeResult, error) {
	outcome, err := normalizeOutcome(outcome)
	if err != nil {
		return nil, err
	}

	var result *OutcomeResult
	err = s.Run(ctx, OpOutcomeStarted, learnerID, func(ctx context.Context, u *Unit) error {
		p, err := u.SubjectForUpdate(ctx, subjectID)
		if err != nil {
			return err
		}
		result = outcomeResult(p, outcome, p.StartOutcome(outcome))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OutcomeCompleted implements Service.OutcomeCompleted.
func (s *service) OutcomeCompleted(ctx context.Context, learnerID, subjectID uuid.UUID, outcome string) (*OutcomeResult, error) {
	outcome, err := normalizeOutcome(outcome)
	if err != nil {
		return nil, err
	}

	var result *OutcomeResult
	err = s.Run(ctx, OpOutcomeCompleted, learnerID, func(ctx context.Context, u *Unit) error {
		p, err := u.SubjectForUpdate(ctx, subjectID)
		if err != nil {
			return err
		}
		if !p.CompleteOutcome(outcome) {
			result = outcomeResult(p, outcome, false)
			return nil
		}

		award, err := u.AwardActivity(ctx, domain.ActivityOutcomeCompleted, &subjectID, false)
		if err != nil {
			return err
		}
		result = outcomeResult(p, outcome, true)
		result.Award = &award
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeOutcome(outcome string) (string, error) {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return "", domain.NewInvalidInputError("outcome", "is required")
	}
	return outcome, nil
}

func outcomeResult(p *domain.SubjectProgress, outcome string, changed bool) *OutcomeResult {
	return &OutcomeResult{
		SubjectID:          p.SubjectID,
		Outcome:            outcome,
		Changed:            changed,
		OutcomesCompleted:  len(p.OutcomesCompleted),
		OutcomesInProgress: len(p.OutcomesInProgress),
	}
}
