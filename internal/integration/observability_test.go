package integration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumandas0/entropic-model/internal/integration"
	"github.com/sumandas0/entropic-model/internal/observability"
	"github.com/sumandas0/entropic-model/pkg/meta"
)

func TestObservabilityManager(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "model.log")
	om, err := integration.NewObservabilityManager(
		observability.TracingConfig{},
		observability.LoggingConfig{Level: observability.LogLevelDebug, Format: observability.LogFormatJSON, Output: logPath},
		observability.MetricsConfig{Enabled: true},
		integration.BuildInfo{Version: "1.2.3", Commit: "abc", BuildTime: "today"},
	)
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	m := meta.NewMeta("Book", append(om.MetaOptions(), meta.WithEndpoints(meta.Endpoints{
		Read: func(ctx context.Context, payload any) (*meta.Response, error) {
			return nil, errors.New("offline")
		},
	}))...)
	_, err = m.Read(context.Background(), nil)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(om.GetMetrics().Registry(), "entropic_model_requests_total", "entropic_build_info")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	status := om.Status()
	assert.Equal(t, false, status["tracing_enabled"])
	assert.Equal(t, true, status["metrics_enabled"])

	require.NoError(t, om.Shutdown(context.Background()))

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"verb":"read"`)
	assert.Contains(t, string(raw), "offline")
}

func TestObservabilityManager_BadLogOutput(t *testing.T) {
	_, err := integration.NewObservabilityManager(
		observability.TracingConfig{},
		observability.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "model.log")},
		observability.MetricsConfig{},
		integration.BuildInfo{},
	)
	assert.Error(t, err)
}
