package api

import (
	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/domain"
)

// CompleteSessionRequest is the payload for POST .../sessions/complete.
// A missing SessionID gets a generated one; clients that retry should send
// their own so a repeated request is rejected instead of counted twice.
type CompleteSessionRequest struct {
	SessionID          *uuid.UUID `json:"session_id,omitempty"`
	SubjectCode        string     `json:"subject_code,omitempty" validate:"omitempty,max=16"`
	FlashcardsReviewed int        `json:"flashcards_reviewed" validate:"gte=0"`
	FlashcardsCorrect  int        `json:"flashcards_correct" validate:"gte=0,ltefield=FlashcardsReviewed"`
	DurationMinutes    int        `json:"duration_minutes" validate:"gte=0,lte=1440"`
}

// ReviewFlashcardRequest grades one flashcard review. Either Quality, or
// Difficulty together with WasCorrect, must be set.
type ReviewFlashcardRequest struct {
	Quality    *int  `json:"quality,omitempty" validate:"omitempty,min=0,max=5"`
	Difficulty *int  `json:"difficulty,omitempty" validate:"omitempty,min=1,max=5"`
	WasCorrect *bool `json:"was_correct,omitempty"`
}

// PostponeFlashcardRequest is the payload for POST .../postpone.
type PostponeFlashcardRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// NoteUploadRequest is the payload for POST .../notes.
type NoteUploadRequest struct {
	SubjectCode string `json:"subject_code,omitempty" validate:"omitempty,max=16"`
}

// Outcome statuses accepted by OutcomeRequest.
const (
	OutcomeStatusInProgress = "in_progress"
	OutcomeStatusCompleted  = "completed"
)

// OutcomeRequest is the payload for POST .../outcomes.
type OutcomeRequest struct {
	SubjectCode string `json:"subject_code" validate:"required,max=16"`
	Outcome     string `json:"outcome" validate:"required,max=64"`
	Status      string `json:"status" validate:"required,oneof=in_progress completed"`
}

// AwardXPRequest is the payload for POST .../xp.
type AwardXPRequest struct {
	ActivityType    string `json:"activity_type" validate:"required,max=64"`
	Amount          int    `json:"amount" validate:"gte=0"`
	SubjectCode     string `json:"subject_code,omitempty" validate:"omitempty,max=16"`
	ApplyMultiplier bool   `json:"apply_multiplier"`
}

// RecordActivityRequest is the payload for POST .../activity. A missing
// date means today.
type RecordActivityRequest struct {
	Date domain.Date `json:"date"`
}

// InvalidateResponse acknowledges a reference data invalidation.
type InvalidateResponse struct {
	Invalidated bool `json:"invalidated"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
