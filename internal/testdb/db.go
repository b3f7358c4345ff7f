package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/platform/postgres"
)

// TestTimeout bounds setup queries against the test database.
const TestTimeout = 5 * time.Second

// EnvDatabaseURL names the variable that enables integration tests.
const EnvDatabaseURL = "DATABASE_URL"

var migrateOnce sync.Once
var migrateErr error

// GetTestDatabaseURL returns the database URL for tests, or "" when unset.
func GetTestDatabaseURL() string {
	return os.Getenv(EnvDatabaseURL)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// GetTestDBWithT opens the test database, applies the migrations once per
// test binary, and closes the connection when the test ends. The test is
// skipped when DATABASE_URL is not set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", GetTestDatabaseURL())
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to reach test database")

	migrateOnce.Do(func() {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		migrateErr = postgres.Migrate(context.Background(), db, "up", quiet)
	})
	require.NoError(t, migrateErr, "failed to apply migrations")

	return db
}
