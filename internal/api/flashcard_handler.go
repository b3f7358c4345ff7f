package api

import (
	"log/slog"
	"net/http"

	"github.com/dunskii/studyhub/internal/api/shared"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/service/flashcard_review"
)

// FlashcardHandler serves flashcard review requests.
type FlashcardHandler struct {
	reviews flashcard_review.Service
	logger  *slog.Logger
}

// NewFlashcardHandler creates a FlashcardHandler.
func NewFlashcardHandler(reviews flashcard_review.Service, logger *slog.Logger) *FlashcardHandler {
	if reviews == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("flashcard review service cannot be nil for FlashcardHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for FlashcardHandler")
	}

	return &FlashcardHandler{
		reviews: reviews,
		logger:  logger.With(slog.String("component", "flashcard_handler")),
	}
}

// SubmitReview handles POST /api/learners/{learnerID}/flashcards/{flashcardID}/review.
func (h *FlashcardHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, log, paramLearnerID, paramFlashcardID)
	if !ok {
		return
	}
	learnerID, flashcardID := ids[0], ids[1]

	var req ReviewFlashcardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.reviews.SubmitReview(r.Context(), learnerID, flashcardID, flashcard_review.ReviewInput{
		Quality:    req.Quality,
		Difficulty: req.Difficulty,
		WasCorrect: req.WasCorrect,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Debug("flashcard reviewed",
		slog.String("learner_id", learnerID.String()),
		slog.String("flashcard_id", flashcardID.String()),
		slog.Int("quality", outcome.Quality),
		slog.Int("interval_days", outcome.Schedule.IntervalDays))
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// PostponeReview handles POST /api/learners/{learnerID}/flashcards/{flashcardID}/postpone.
func (h *FlashcardHandler) PostponeReview(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID, paramFlashcardID)
	if !ok {
		return
	}

	var req PostponeFlashcardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	schedule, err := h.reviews.PostponeReview(r.Context(), ids[0], ids[1], req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, schedule)
}
