package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	apimw "github.com/dunskii/studyhub/internal/api/middleware"
	"github.com/dunskii/studyhub/internal/api/shared"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/service/flashcard_review"
	"github.com/dunskii/studyhub/internal/service/progress"
)

// healthTimeout bounds the readiness check behind GET /health.
const healthTimeout = 2 * time.Second

// Invalidator discards cached reference data.
type Invalidator interface {
	Invalidate()
}

// RouterConfig holds the dependencies of the HTTP router. Invalidator,
// HealthCheck and Metrics are optional.
type RouterConfig struct {
	Progress    progress.Service
	Reviews     flashcard_review.Service
	RefData     refdata.Provider
	Invalidator Invalidator
	HealthCheck func(ctx context.Context) error
	Metrics     http.Handler
	ServiceName string
	Logger      *slog.Logger
}

// NewRouter builds the HTTP handler for all routes, wrapped in OpenTelemetry
// server instrumentation.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "studyhub"
	}

	progressHandler := NewProgressHandler(cfg.Progress, cfg.RefData, log)
	flashcardHandler := NewFlashcardHandler(cfg.Reviews, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.NewTraceMiddleware(log))
	r.Use(routeSpanName)

	r.Route("/api", func(r chi.Router) {
		r.Route("/learners/{learnerID}", func(r chi.Router) {
			r.Post("/sessions/complete", progressHandler.CompleteSession)
			r.Post("/notes", progressHandler.UploadNote)
			r.Post("/outcomes", progressHandler.UpdateOutcome)
			r.Post("/xp", progressHandler.AwardXP)
			r.Post("/activity", progressHandler.RecordActivity)
			r.Get("/progress", progressHandler.GetProgress)
			r.Get("/achievements", progressHandler.ListAchievements)
			r.Post("/achievements/check", progressHandler.CheckAchievements)

			r.Post("/flashcards/{flashcardID}/review", flashcardHandler.SubmitReview)
			r.Post("/flashcards/{flashcardID}/postpone", flashcardHandler.PostponeReview)
		})

		r.Post("/admin/reference-data/invalidate", invalidateHandler(cfg.Invalidator, log))
	})

	r.Get("/health", healthHandler(cfg.HealthCheck))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	return otelhttp.NewHandler(r, serviceName)
}

// routeSpanName renames the server span to the matched route pattern once
// chi has routed the request.
func routeSpanName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}
		if pattern := rctx.RoutePattern(); pattern != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
		}
	})
}

func invalidateHandler(inv Invalidator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inv == nil {
			shared.RespondWithError(w, r, http.StatusNotImplemented, "Reference data is not cached")
			return
		}
		inv.Invalidate()
		log.Info("reference data invalidated by request",
			slog.String("trace_id", shared.GetTraceID(r.Context())))
		shared.RespondWithJSON(w, r, http.StatusOK, InvalidateResponse{Invalidated: true})
	}
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
