package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/config"
	"github.com/dunskii/studyhub/internal/domain/gamification"
	"github.com/dunskii/studyhub/internal/testdb"
)

func TestLoadRules(t *testing.T) {
	t.Parallel()

	defaults := gamification.MustDefaultRuleSet()

	t.Run("embedded defaults", func(t *testing.T) {
		t.Parallel()
		rules, err := loadRules(config.EngineConfig{Timezone: "UTC"})
		require.NoError(t, err)
		assert.Equal(t, len(defaults.Achievements), len(rules.Achievements))
	})

	t.Run("missing override file", func(t *testing.T) {
		t.Parallel()
		_, err := loadRules(config.EngineConfig{RulesFile: filepath.Join(t.TempDir(), "rules.yaml")})
		assert.Error(t, err)
	})

	t.Run("invalid override file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("levels: [this is not a table"), 0o600))
		_, err := loadRules(config.EngineConfig{RulesFile: path})
		assert.Error(t, err)
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Database:  config.DatabaseConfig{URL: testdb.GetTestDatabaseURL(), MaxOpenConns: 2},
		Engine:    config.EngineConfig{Timezone: "Australia/Sydney"},
		Telemetry: config.TelemetryConfig{ServiceName: "studyhub-test", MetricsEnabled: true, SampleRatio: 1},
	}
}

func TestApplicationServesRequests(t *testing.T) {
	if testdb.ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set")
	}

	db := testdb.GetTestDBWithT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApplication(context.Background(), testConfig(t), logger, db)
	require.NoError(t, err)

	server := httptest.NewServer(app.router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = server.Client().Post(server.URL+"/api/admin/reference-data/invalidate", "application/json", nil)
	require.NoError(t, err)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.True(t, body["invalidated"])

	resp, err = server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "go_goroutines"))
}
