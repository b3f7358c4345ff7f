package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dunskii/studyhub/internal/api"
	"github.com/dunskii/studyhub/internal/config"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/domain/srs"
	"github.com/dunskii/studyhub/internal/events"
	"github.com/dunskii/studyhub/internal/platform/metrics"
	"github.com/dunskii/studyhub/internal/platform/postgres"
	"github.com/dunskii/studyhub/internal/refdata"
	"github.com/dunskii/studyhub/internal/service/flashcard_review"
	"github.com/dunskii/studyhub/internal/service/progress"
)

// application holds the shared dependencies of the server so they can be
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics        *metrics.Recorder
	metricsHandler http.Handler
	refdata        *refdata.Cache
	emitter        *events.InMemoryEventEmitter

	progressService progress.Service
	reviewService   flashcard_review.Service
}

// newApplication wires stores, reference data and services on top of an
// established database connection.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.Telemetry.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.metrics = metrics.New(registry)
		app.metricsHandler = metrics.Handler(registry)
	}

	rules, err := loadRules(cfg.Engine)
	if err != nil {
		return nil, err
	}

	seeded, err := postgres.SeedAchievements(ctx, db, rules.Achievements)
	if err != nil {
		return nil, fmt.Errorf("failed to seed achievement definitions: %w", err)
	}
	logger.Info("achievement definitions seeded", "inserted", seeded, "defined", len(rules.Achievements))

	app.refdata = refdata.NewCache(postgres.NewReferenceStore(db, rules, logger), logger, app.metrics)
	if _, err := app.refdata.Get(ctx); err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	clock, err := progress.NewSystemClock(cfg.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to create clock: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.LogHandler{Logger: logger.With("component", "progress_events")})

	txManager := postgres.NewTxManager(db, logger)

	app.progressService, err = progress.NewService(progress.Deps{
		Tx:      txManager,
		Reads:   postgres.NewStores(db, logger),
		RefData: app.refdata,
		Clock:   clock,
		Emitter: app.emitter,
		Metrics: app.metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progress service: %w", err)
	}

	app.reviewService, err = flashcard_review.NewService(
		app.progressService,
		srs.NewDefaultService(),
		txManager,
		clock,
		app.metrics,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create flashcard review service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// loadRules returns the rule table from the configured file, or the embedded
// defaults.
func loadRules(cfg config.EngineConfig) (*gamification.RuleSet, error) {
	if cfg.RulesFile == "" {
		rules, err := gamification.DefaultRuleSet()
		if err != nil {
			return nil, fmt.Errorf("failed to load default rules: %w", err)
		}
		return rules, nil
	}
	rules, err := gamification.LoadRuleSet(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", cfg.RulesFile, err)
	}
	return rules, nil
}

// router builds the HTTP handler from the application's services.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Progress:    app.progressService,
		Reviews:     app.reviewService,
		RefData:     app.refdata,
		Invalidator: app.refdata,
		HealthCheck: app.db.PingContext,
		Metrics:     app.metricsHandler,
		ServiceName: app.config.Telemetry.ServiceName,
		Logger:      app.logger,
	})
}

// Run serves HTTP until shutdown.
func (app *application) Run(ctx context.Context) error {
	return app.startHTTPServer(ctx, app.router())
}

// cleanup releases resources on shutdown.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
