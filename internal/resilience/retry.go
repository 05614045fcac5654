package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"
)

type RetryConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterEnabled     bool          `yaml:"jitter_enabled" mapstructure:"jitter_enabled"`
	JitterFactor      float64       `yaml:"jitter_factor" mapstructure:"jitter_factor"`
}

type RetryStrategy string

const (
	StrategyExponential RetryStrategy = "exponential"
	StrategyLinear      RetryStrategy = "linear"
	StrategyFixed       RetryStrategy = "fixed"
)

type RetryManager struct {
	config   RetryConfig
	strategy RetryStrategy
}

func NewRetryManager(config RetryConfig, strategy RetryStrategy) *RetryManager {
	return &RetryManager{
		config:   config,
		strategy: strategy,
	}
}

type IsRetryableError func(error) bool

// Retryable is implemented by errors that know whether repeating the request can help.
type Retryable interface {
	Retryable() bool
}

// TransportRetryableErrors retries network timeouts, refused or reset connections, and
// errors that declare themselves retryable. Context cancellation is never retried.
func TransportRetryableErrors(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection refused", "connection reset", "temporary failure", "service unavailable"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func (rm *RetryManager) ExecuteWithResult(ctx context.Context, fn func() (any, error), isRetryable IsRetryableError) (any, error) {
	if !rm.config.Enabled || rm.config.MaxAttempts <= 1 {
		return fn()
	}

	var lastErr error

	for attempt := 1; attempt <= rm.config.MaxAttempts; attempt++ {

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt == rm.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(rm.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("operation failed after %d attempts: %w", rm.config.MaxAttempts, lastErr)
}

func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch rm.strategy {
	case StrategyLinear:
		delay = time.Duration(int64(rm.config.InitialDelay) * int64(attempt))
	case StrategyFixed:
		delay = rm.config.InitialDelay
	default:
		multiplier := math.Pow(rm.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(rm.config.InitialDelay) * multiplier)
	}

	if rm.config.JitterEnabled {
		delay = rm.applyJitter(delay)
	}

	if rm.config.MaxDelay > 0 && delay > rm.config.MaxDelay {
		delay = rm.config.MaxDelay
	}

	return delay
}

func (rm *RetryManager) applyJitter(delay time.Duration) time.Duration {
	if rm.config.JitterFactor <= 0 || rm.config.JitterFactor >= 1 {
		return delay
	}

	jitter := rm.config.JitterFactor * float64(delay)
	randomJitter := (rand.Float64()*2 - 1) * jitter

	finalDelay := time.Duration(float64(delay) + randomJitter)
	if finalDelay < 0 {
		finalDelay = time.Duration(float64(delay) * 0.1)
	}

	return finalDelay
}

func (rm *RetryManager) IsEnabled() bool {
	return rm.config.Enabled
}

var BackoffStrategies = map[string]RetryConfig{
	"fast": {
		Enabled:           true,
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterEnabled:     true,
		JitterFactor:      0.1,
	},
	"standard": {
		Enabled:           true,
		MaxAttempts:       5,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterEnabled:     true,
		JitterFactor:      0.2,
	},
}
