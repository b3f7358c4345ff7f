package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/api/shared"
	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/service/progress"
)

// ProgressHandler serves the learner progress endpoints.
type ProgressHandler struct {
	progress progress.Service
	refdata  refdata.Provider
	logger   *slog.Logger
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(progressService progress.Service, provider refdata.Provider, logger *slog.Logger) *ProgressHandler {
	if progressService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("progress service cannot be nil for ProgressHandler")
	}
	if provider == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reference data provider cannot be nil for ProgressHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProgressHandler")
	}

	return &ProgressHandler{
		progress: progressService,
		refdata:  provider,
		logger:   logger.With(slog.String("component", "progress_handler")),
	}
}

// CompleteSession handles POST /api/learners/{learnerID}/sessions/complete.
func (h *ProgressHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, log, paramLearnerID)
	if !ok {
		return
	}
	learnerID := ids[0]

	var req CompleteSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subjectID, err := h.resolveSubject(r, req.SubjectCode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete session")
		return
	}

	session := domain.StudySession{
		ID:                 uuid.New(),
		LearnerID:          learnerID,
		SubjectID:          subjectID,
		FlashcardsReviewed: req.FlashcardsReviewed,
		FlashcardsCorrect:  req.FlashcardsCorrect,
		DurationMinutes:    req.DurationMinutes,
	}
	if req.SessionID != nil {
		session.ID = *req.SessionID
	}

	result, err := h.progress.SessionComplete(r.Context(), session)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete session")
		return
	}

	log.Debug("session completed",
		slog.String("learner_id", learnerID.String()),
		slog.String("session_id", session.ID.String()),
		slog.Int("xp_earned", result.XPEarned))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// UploadNote handles POST /api/learners/{learnerID}/notes.
func (h *ProgressHandler) UploadNote(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	var req NoteUploadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subjectID, err := h.resolveSubject(r, req.SubjectCode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record note upload")
		return
	}

	award, err := h.progress.NoteUploaded(r.Context(), ids[0], subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record note upload")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, award)
}

// UpdateOutcome handles POST /api/learners/{learnerID}/outcomes.
func (h *ProgressHandler) UpdateOutcome(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	var req OutcomeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subjectID, err := h.resolveSubject(r, req.SubjectCode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update outcome")
		return
	}
	if subjectID == nil {
		HandleAPIError(w, r, domain.NewInvalidInputError("subject_code", "is required"), "")
		return
	}

	var result *progress.OutcomeResult
	if req.Status == OutcomeStatusCompleted {
		result, err = h.progress.OutcomeCompleted(r.Context(), ids[0], *subjectID, req.Outcome)
	} else {
		result, err = h.progress.OutcomeStarted(r.Context(), ids[0], *subjectID, req.Outcome)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update outcome")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// AwardXP handles POST /api/learners/{learnerID}/xp.
func (h *ProgressHandler) AwardXP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ids, ok := handlePathUUIDs(w, r, log, paramLearnerID)
	if !ok {
		return
	}

	var req AwardXPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subjectID, err := h.resolveSubject(r, req.SubjectCode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to award XP")
		return
	}

	award, err := h.progress.AwardXP(r.Context(), ids[0], gamification.AwardRequest{
		Activity:        domain.ActivityType(req.ActivityType),
		Amount:          req.Amount,
		SubjectID:       subjectID,
		ApplyMultiplier: req.ApplyMultiplier,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to award XP")
		return
	}

	if award.UnknownActivity {
		log.Warn("XP requested for unknown activity type",
			slog.String("learner_id", ids[0].String()),
			slog.String("activity_type", req.ActivityType))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, award)
}

// RecordActivity handles POST /api/learners/{learnerID}/activity.
func (h *ProgressHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update, err := h.progress.RecordActivity(r.Context(), ids[0], req.Date)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record activity")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, update)
}

// GetProgress handles GET /api/learners/{learnerID}/progress?subject=CODE.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	summary, err := h.progress.GetProgress(r.Context(), ids[0], subject)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// ListAchievements handles GET /api/learners/{learnerID}/achievements.
func (h *ProgressHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	achievements, err := h.progress.ListAchievements(r.Context(), ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load achievements")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, achievements)
}

// CheckAchievements handles POST /api/learners/{learnerID}/achievements/check.
func (h *ProgressHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	ids, ok := handlePathUUIDs(w, r, nil, paramLearnerID)
	if !ok {
		return
	}

	unlocked, err := h.progress.CheckAndUnlock(r.Context(), ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check achievements")
		return
	}
	if unlocked == nil {
		unlocked = []domain.UnlockedAchievement{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, unlocked)
}

// resolveSubject maps an optional subject code to its ID. An empty code
// means no subject.
func (h *ProgressHandler) resolveSubject(r *http.Request, code string) (*uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	snapshot, err := h.refdata.Get(r.Context())
	if err != nil {
		return nil, err
	}
	id := snapshot.ResolveSubject(code)
	if id == nil {
		return nil, domain.NewInvalidInputError("subject_code", "unknown subject")
	}
	return id, nil
}
