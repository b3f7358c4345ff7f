package domain

import "github.com/google/uuid"

// ActivityType identifies a kind of XP-earning activity.
type ActivityType string

// Built-in activity types. The rule table may define others.
const (
	ActivityFlashcardReview     ActivityType = "flashcard_review"
	ActivityFlashcardCorrect    ActivityType = "flashcard_correct"
	ActivityStudySession        ActivityType = "study_session"
	ActivityPerfectSession      ActivityType = "perfect_session"
	ActivityNoteUpload          ActivityType = "note_upload"
	ActivityAchievementUnlocked ActivityType = "achievement_unlocked"
	ActivityOutcomeCompleted    ActivityType = "outcome_completed"
)

// ActivityEvent is a single XP-earning occurrence.
type ActivityEvent struct {
	ActivityType ActivityType
	BaseAmount   int
	SubjectID    *uuid.UUID
	SessionID    *uuid.UUID
}

// StudySession summarises a completed study session.
type StudySession struct {
	ID                 uuid.UUID  `json:"id"`
	LearnerID          uuid.UUID  `json:"learner_id"`
	SubjectID          *uuid.UUID `json:"subject_id,omitempty"`
	FlashcardsReviewed int        `json:"flashcards_reviewed" validate:"gte=0"`
	FlashcardsCorrect  int        `json:"flashcards_correct" validate:"gte=0,ltefield=FlashcardsReviewed"`
	DurationMinutes    int        `json:"duration_minutes" validate:"gte=0"`
}

// Validate checks the session counters.
func (s StudySession) Validate() error {
	if s.LearnerID == uuid.Nil {
		return NewInvalidInputError("learner_id", "must be set")
	}
	if s.FlashcardsReviewed < 0 {
		return NewInvalidInputError("flashcards_reviewed", "must not be negative")
	}
	if s.FlashcardsCorrect < 0 {
		return NewInvalidInputError("flashcards_correct", "must not be negative")
	}
	if s.FlashcardsCorrect > s.FlashcardsReviewed {
		return NewInvalidInputError("flashcards_correct", "cannot exceed flashcards_reviewed")
	}
	if s.DurationMinutes < 0 {
		return NewInvalidInputError("duration_minutes", "must not be negative")
	}
	return nil
}

// IsPerfect reports whether every attempted flashcard was answered correctly.
func (s StudySession) IsPerfect() bool {
	return s.FlashcardsReviewed > 0 && s.FlashcardsCorrect == s.FlashcardsReviewed
}
