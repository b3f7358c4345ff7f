package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dunskii/studyhub/internal/api/shared"
	"github.com/dunskii/studyhub/internal/domain"
	"github.com/dunskii/studyhub/internal/platform/logger"
)

// Path parameter names used by the router.
const (
	paramLearnerID   = "learnerID"
	paramFlashcardID = "flashcardID"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handlePathUUIDs extracts each named UUID path parameter in order. On the
// first failure it writes a 400 response and returns false.
func handlePathUUIDs(w http.ResponseWriter, r *http.Request, log *slog.Logger, paramNames ...string) ([]uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	ids := make([]uuid.UUID, 0, len(paramNames))
	for _, name := range paramNames {
		id, err := getPathUUID(r, name)
		if err != nil {
			log.Warn("invalid path parameter",
				slog.String("param_name", name),
				slog.String("value", chi.URLParam(r, name)))
			HandleAPIError(w, r, err, "")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// decodeAndValidate reads the JSON body into req and validates it. It writes
// a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
