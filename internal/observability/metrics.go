package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumandas0/entropic-model/pkg/meta"
)

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Path      string `yaml:"path" mapstructure:"path"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	Subsystem string `yaml:"subsystem" mapstructure:"subsystem"`
}

// MetricsManager records model requests, as a meta.Observer, and the HTTP traffic of the
// mock server on its own registry.
type MetricsManager struct {
	config   MetricsConfig
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	buildInfo *prometheus.GaugeVec
}

func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if !config.Enabled {
		return &MetricsManager{config: config}
	}

	registry := prometheus.NewRegistry()

	namespace := config.Namespace
	if namespace == "" {
		namespace = "entropic"
	}
	subsystem := config.Subsystem
	if subsystem == "" {
		subsystem = "model"
	}

	mm := &MetricsManager{
		config:   config,
		registry: registry,
	}

	mm.requestsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of model and collection requests",
		},
		[]string{"kind", "verb", "status"},
	)

	mm.requestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Model and collection request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "verb"},
	)

	mm.inFlight = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_in_flight",
			Help:      "Requests currently holding the busy flag",
		},
		[]string{"kind"},
	)

	mm.httpRequestsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	mm.httpRequestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	mm.buildInfo = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	return mm
}

// StartRequest implements meta.Observer.
func (mm *MetricsManager) StartRequest(ctx context.Context, kind string, verb meta.Verb) (context.Context, func(error)) {
	if !mm.config.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	mm.inFlight.WithLabelValues(kind).Inc()

	return ctx, func(err error) {
		mm.inFlight.WithLabelValues(kind).Dec()
		mm.RecordRequest(kind, string(verb), err, time.Since(start))
	}
}

func (mm *MetricsManager) RecordRequest(kind, verb string, err error, duration time.Duration) {
	if !mm.config.Enabled {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	mm.requestsTotal.WithLabelValues(kind, verb, status).Inc()
	mm.requestDuration.WithLabelValues(kind, verb).Observe(duration.Seconds())
}

func (mm *MetricsManager) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if !mm.config.Enabled {
		return
	}

	mm.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	mm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (mm *MetricsManager) SetBuildInfo(version, commit, buildTime string) {
	if !mm.config.Enabled {
		return
	}
	mm.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Registry returns the registry backing the collectors, nil when metrics are disabled.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

func (mm *MetricsManager) Handler() http.Handler {
	if !mm.config.Enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}

// MetricsMiddleware records every request. pathLabel maps a request to a bounded label,
// usually its route pattern; nil uses the raw path.
func (mm *MetricsManager) MetricsMiddleware(pathLabel func(*http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mm.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if pathLabel != nil {
				path = pathLabel(r)
			}
			mm.RecordHTTPRequest(r.Method, path, wrapped.statusCode, time.Since(start))
		})
	}
}

func (mm *MetricsManager) IsEnabled() bool {
	return mm.config.Enabled
}
