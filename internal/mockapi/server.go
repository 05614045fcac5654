// Package mockapi serves an in-memory REST backend with the route layout the sdk
// package expects. It backs the CLI's mock-server command and the end-to-end tests
// of models and collections.
package mockapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sumandas0/entropic-model/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxBodySize    int64         `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS           CORSConfig    `yaml:"cors" mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" mapstructure:"max_age"`
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           8080,
		RequestTimeout: 30 * time.Second,
		MaxBodySize:    10 << 20,
		CORS: CORSConfig{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Link", "X-Trace-ID"},
			MaxAge:         300,
		},
	}
}

// Server routes requests to the store.
type Server struct {
	config  Config
	store   *Store
	logger  *observability.Logger
	metrics *observability.MetricsManager
	tracer  *observability.TracingManager
}

type Option func(*Server)

// WithStore replaces the empty store the server starts with.
func WithStore(store *Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(metrics *observability.MetricsManager) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

func WithTracing(tracer *observability.TracingManager) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

func NewServer(config Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if config.Port == 0 {
		config.Port = defaults.Port
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaults.MaxBodySize
	}
	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS = defaults.CORS
	}

	s := &Server{
		config: config,
		store:  NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

func (s *Server) baseLogger() zerolog.Logger {
	if s.logger != nil {
		return s.logger.GetZerologLogger()
	}
	return log.Logger
}

// Handler configures all routes and middleware.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	if s.logger != nil {
		router.Use(s.logger.LoggingMiddleware())
	}
	if s.tracer != nil {
		router.Use(s.tracer.TraceMiddleware())
	}
	if s.metrics != nil {
		router.Use(s.metrics.MetricsMiddleware(routePattern))
	}
	router.Use(ErrorHandler(s.baseLogger()))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORS.AllowedOrigins,
		AllowedMethods:   s.config.CORS.AllowedMethods,
		AllowedHeaders:   s.config.CORS.AllowedHeaders,
		ExposedHeaders:   s.config.CORS.ExposedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           s.config.CORS.MaxAge,
	}))

	if s.config.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(s.config.RequestTimeout))
	}

	router.Get("/health", s.healthCheck)
	if s.metrics != nil && s.metrics.IsEnabled() {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Route("/api/v1/{resource}", func(resourceRouter chi.Router) {
		resourceRouter.Get("/", s.list)
		resourceRouter.Post("/", s.create)
		resourceRouter.Post("/bulk-delete", s.bulkDelete)
		resourceRouter.Put("/bulk", s.bulkUpsert)

		resourceRouter.Route("/{id}", func(idRouter chi.Router) {
			idRouter.Get("/", s.get)
			idRouter.Patch("/", s.update)
			idRouter.Delete("/", s.delete)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		SendNotFoundError(w, r, "route")
	})

	return router
}

// NewHTTPServer wraps the handler in an http.Server bound to the configured address.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   observability.ServiceVersion,
		"resources": s.store.Resources(),
	})
}
