package domain

import "github.com/google/uuid"

// Subject is reference data used to resolve subject-scoped achievements and
// subject level titles.
type Subject struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// SubjectProgress is a learner's progress within one subject.
type SubjectProgress struct {
	LearnerID          uuid.UUID           `json:"learner_id"`
	SubjectID          uuid.UUID           `json:"subject_id"`
	XPEarned           int                 `json:"xp_earned"`
	MasteryPercent     int                 `json:"mastery_percent"`
	OutcomesCompleted  map[string]struct{} `json:"-"`
	OutcomesInProgress map[string]struct{} `json:"-"`
}

// NewSubjectProgress returns empty progress for a learner in a subject.
func NewSubjectProgress(learnerID, subjectID uuid.UUID) *SubjectProgress {
	return &SubjectProgress{
		LearnerID:          learnerID,
		SubjectID:          subjectID,
		OutcomesCompleted:  make(map[string]struct{}),
		OutcomesInProgress: make(map[string]struct{}),
	}
}

// StartOutcome marks outcome as in progress. It reports false when the
// outcome is already in progress or completed.
func (p *SubjectProgress) StartOutcome(outcome string) bool {
	if _, done := p.OutcomesCompleted[outcome]; done {
		return false
	}
	if _, started := p.OutcomesInProgress[outcome]; started {
		return false
	}
	if p.OutcomesInProgress == nil {
		p.OutcomesInProgress = make(map[string]struct{})
	}
	p.OutcomesInProgress[outcome] = struct{}{}
	return true
}

// CompleteOutcome moves outcome into the completed set, from in progress if
// it was started. It reports false when the outcome was already completed.
func (p *SubjectProgress) CompleteOutcome(outcome string) bool {
	if _, done := p.OutcomesCompleted[outcome]; done {
		return false
	}
	delete(p.OutcomesInProgress, outcome)
	if p.OutcomesCompleted == nil {
		p.OutcomesCompleted = make(map[string]struct{})
	}
	p.OutcomesCompleted[outcome] = struct{}{}
	return true
}

// Clone returns a deep copy.
func (p *SubjectProgress) Clone() *SubjectProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.OutcomesCompleted = cloneSet(p.OutcomesCompleted)
	out.OutcomesInProgress = cloneSet(p.OutcomesInProgress)
	return &out
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
