package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

type LoggingConfig struct {
	Level      LogLevel        `yaml:"level" mapstructure:"level"`
	Format     LogFormat       `yaml:"format" mapstructure:"format"`
	Output     string          `yaml:"output" mapstructure:"output"`
	TimeFormat string          `yaml:"time_format" mapstructure:"time_format"`
	Sampling   *SamplingConfig `yaml:"sampling" mapstructure:"sampling"`
}

type SamplingConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	Thereafter int  `yaml:"thereafter" mapstructure:"thereafter"`
}

type Logger struct {
	logger zerolog.Logger
	config LoggingConfig
	closer io.Closer
}

func NewLogger(config LoggingConfig) (*Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level := parseLogLevel(config.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	var closer io.Closer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		output = file
		closer = file
	}

	if config.Format == LogFormatConsole {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: getTimeFormat(config.TimeFormat),
		}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", "entropic-model").
		Logger()

	if config.Sampling != nil && config.Sampling.Enabled && config.Sampling.Thereafter > 0 {
		logger = logger.Sample(&zerolog.BasicSampler{
			N: uint32(config.Sampling.Thereafter),
		})
	}

	return &Logger{
		logger: logger,
		config: config,
		closer: closer,
	}, nil
}

// WithContext adds the trace and span ids of the active span, if any.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.logger.With()

	for key, value := range ExtractTraceInfo(ctx) {
		logger = logger.Str(key, value)
	}

	contextLogger := logger.Logger()
	return &contextLogger
}

func (l *Logger) WithOperation(operation string) *zerolog.Logger {
	logger := l.logger.With().
		Str("operation", operation).
		Logger()
	return &logger
}

func (l *Logger) WithError(err error) *zerolog.Logger {
	logger := l.logger.With().
		Stack().
		Err(err).
		Logger()
	return &logger
}

func (l *Logger) GetZerologLogger() zerolog.Logger {
	return l.logger
}

// Close releases the log file when logging to one.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func parseLogLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelTrace:
		return zerolog.TraceLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func getTimeFormat(format string) string {
	if format == "" {
		return time.RFC3339
	}
	return format
}

func (l *Logger) LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			logger := l.WithContext(r.Context()).
				With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Logger()

			next.ServeHTTP(wrapped, r)

			logEvent := logger.Info()
			switch {
			case wrapped.statusCode >= 500:
				logEvent = logger.Error()
			case wrapped.statusCode >= 400:
				logEvent = logger.Warn()
			}

			logEvent.
				Int("status_code", wrapped.statusCode).
				Int64("response_size", wrapped.size).
				Dur("duration", time.Since(start)).
				Msg("HTTP request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.statusCode = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(data []byte) (int, error) {
	size, err := sr.ResponseWriter.Write(data)
	sr.size += int64(size)
	return size, err
}

func SetGlobalLogger(logger *Logger) {
	log.Logger = logger.logger
}
