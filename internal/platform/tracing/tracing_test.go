package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), config.TelemetryConfig{ServiceName: "studyhub"}, nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewExporterDefaultsToStdout(t *testing.T) {
	t.Parallel()

	exporter, err := newExporter(context.Background(), config.TelemetryConfig{ServiceName: "studyhub"})
	require.NoError(t, err)
	assert.NoError(t, exporter.Shutdown(context.Background()))
}
