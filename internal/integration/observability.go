package integration

import (
	"context"
	"errors"
	"time"

	"github.com/sumandas0/entropic-model/internal/observability"
	"github.com/sumandas0/entropic-model/pkg/meta"
)

// BuildInfo is reported through the build_info gauge.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ObservabilityManager integrates all observability components
type ObservabilityManager struct {
	tracing   *observability.TracingManager
	logging   *observability.Logger
	metrics   *observability.MetricsManager
	startTime time.Time
}

// NewObservabilityManager creates a new observability manager and installs its logger as
// the global zerolog logger.
func NewObservabilityManager(
	tracingConfig observability.TracingConfig,
	loggingConfig observability.LoggingConfig,
	metricsConfig observability.MetricsConfig,
	build BuildInfo,
) (*ObservabilityManager, error) {
	logging, err := observability.NewLogger(loggingConfig)
	if err != nil {
		return nil, err
	}

	tracing, err := observability.NewTracingManager(tracingConfig)
	if err != nil {
		_ = logging.Close()
		return nil, err
	}

	metrics := observability.NewMetricsManager(metricsConfig)
	metrics.SetBuildInfo(build.Version, build.Commit, build.BuildTime)

	observability.SetGlobalLogger(logging)

	return &ObservabilityManager{
		tracing:   tracing,
		logging:   logging,
		metrics:   metrics,
		startTime: time.Now(),
	}, nil
}

// GetTracing returns the tracing manager
func (om *ObservabilityManager) GetTracing() *observability.TracingManager {
	return om.tracing
}

// GetLogging returns the logging manager
func (om *ObservabilityManager) GetLogging() *observability.Logger {
	return om.logging
}

// GetMetrics returns the metrics manager
func (om *ObservabilityManager) GetMetrics() *observability.MetricsManager {
	return om.metrics
}

// Observer returns the observer handed to models and collections. Metrics wrap tracing,
// which wraps request logging.
func (om *ObservabilityManager) Observer() meta.Observer {
	return observability.Chain(om.metrics, om.tracing, om.logging)
}

// MetaOptions returns the logger and observer options shared by every model.
func (om *ObservabilityManager) MetaOptions() []meta.Option {
	return []meta.Option{
		meta.WithLogger(om.logging.GetZerologLogger()),
		meta.WithObserver(om.Observer()),
	}
}

// Status reports which components are active.
func (om *ObservabilityManager) Status() map[string]any {
	return map[string]any{
		"tracing_enabled": om.tracing.IsEnabled(),
		"metrics_enabled": om.metrics.IsEnabled(),
		"uptime_seconds":  time.Since(om.startTime).Seconds(),
	}
}

// Shutdown flushes pending spans and releases the log output.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	return errors.Join(om.tracing.Shutdown(ctx), om.logging.Close())
}
