package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests" mapstructure:"max_requests"`
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// FailureClassifier decides whether an error counts against a breaker. Errors it rejects
// are returned to the caller without tripping the breaker.
type FailureClassifier func(error) bool

// CircuitBreakerManager keeps one breaker per endpoint name, created on first use.
type CircuitBreakerManager struct {
	config    CircuitBreakerConfig
	breakers  map[string]*gobreaker.CircuitBreaker
	mutex     sync.RWMutex
	isFailure FailureClassifier
	logger    zerolog.Logger
}

type BreakerOption func(*CircuitBreakerManager)

func WithFailureClassifier(classifier FailureClassifier) BreakerOption {
	return func(cbm *CircuitBreakerManager) {
		if classifier != nil {
			cbm.isFailure = classifier
		}
	}
}

func WithBreakerLogger(logger zerolog.Logger) BreakerOption {
	return func(cbm *CircuitBreakerManager) {
		cbm.logger = logger
	}
}

func NewCircuitBreakerManager(config CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreakerManager {
	cbm := &CircuitBreakerManager{
		config:    config,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		isFailure: func(err error) bool { return err != nil },
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(cbm)
	}
	return cbm
}

func (cbm *CircuitBreakerManager) GetBreaker(name string) *gobreaker.CircuitBreaker {
	if !cbm.config.Enabled {
		return nil
	}

	cbm.mutex.RLock()
	breaker, exists := cbm.breakers[name]
	cbm.mutex.RUnlock()

	if exists {
		return breaker
	}

	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cbm.config.MaxRequests,
		Interval:    cbm.config.Interval,
		Timeout:     cbm.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbm.config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cbm.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return !cbm.isFailure(err)
		},
	}

	breaker = gobreaker.NewCircuitBreaker(settings)
	cbm.breakers[name] = breaker

	return breaker
}

// ExecuteWithContext runs fn through the breaker registered under name. An open breaker
// rejects the call with an error wrapping utils.ErrCircuitOpen.
func (cbm *CircuitBreakerManager) ExecuteWithContext(ctx context.Context, name string, fn func(context.Context) (any, error)) (any, error) {
	breaker := cbm.GetBreaker(name)
	if breaker == nil {
		return fn(ctx)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if IsCircuitBreakerError(err) {
		return nil, utils.NewAppError(utils.CodeTransport, "endpoint unavailable", errors.Join(utils.ErrCircuitOpen, err)).
			WithDetail("breaker", name)
	}
	return result, err
}

func (cbm *CircuitBreakerManager) GetState(name string) gobreaker.State {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker.State()
	}

	return gobreaker.StateClosed
}

func (cbm *CircuitBreakerManager) GetCounts(name string) gobreaker.Counts {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker.Counts()
	}

	return gobreaker.Counts{}
}

func (cbm *CircuitBreakerManager) IsEnabled() bool {
	return cbm.config.Enabled
}

// Status reports state and counters of every breaker created so far.
func (cbm *CircuitBreakerManager) Status() map[string]any {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	status := make(map[string]any, len(cbm.breakers))
	for name, breaker := range cbm.breakers {
		counts := breaker.Counts()
		status[name] = map[string]any{
			"state":                breaker.State().String(),
			"requests":             counts.Requests,
			"total_failures":       counts.TotalFailures,
			"consecutive_failures": counts.ConsecutiveFailures,
		}
	}

	return map[string]any{
		"circuit_breakers": status,
		"enabled":          cbm.config.Enabled,
	}
}

func IsCircuitBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
