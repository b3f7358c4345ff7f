// Package main implements the StudyHub progress engine server, which turns
// study activity into XP, levels, streaks and achievements, and schedules
// flashcard reviews.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dunskii/studyhub/internal/config"
	"github.com/dunskii/studyhub/internal/platform/logger"
	"github.com/dunskii/studyhub/internal/platform/postgres"
	"github.com/dunskii/studyhub/internal/platform/tracing"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: ./config.yaml when present)")
	migrateCmd := flag.String("migrate", "", "run a goose migration command (up, down, status, version, redo, reset) and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [migration args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configFile, *migrateCmd, flag.Args()); err != nil {
		log.Fatalf("studyhub: %v", err)
	}
}

func run(configFile, migrateCmd string, migrateArgs []string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"timezone", cfg.Engine.Timezone,
		"rules_file_set", cfg.Engine.RulesFile != "")

	ctx := context.Background()

	db, err := setupAppDatabase(ctx, cfg.Database, appLogger)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer closeDB(db, appLogger)
		appLogger.Info("executing migrations", "command", migrateCmd)
		return postgres.Migrate(ctx, db, migrateCmd, appLogger, migrateArgs...)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry, appLogger)
	if err != nil {
		closeDB(db, appLogger)
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Error("tracing shutdown failed", "error", err)
		}
	}()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		closeDB(db, appLogger)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

func closeDB(db interface{ Close() error }, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("error closing database connection", "error", err)
	}
}
