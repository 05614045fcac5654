package security

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
	// Block makes callers wait for a token instead of failing fast.
	Block bool `yaml:"block" mapstructure:"block"`

	EndpointLimits map[string]EndpointLimit `yaml:"endpoint_limits" mapstructure:"endpoint_limits"`
}

type EndpointLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ClientLimiter throttles outgoing requests. Endpoints listed in EndpointLimits get their
// own bucket; every other endpoint shares the global one.
type ClientLimiter struct {
	config        RateLimitConfig
	globalLimiter *rate.Limiter
	endpoints     map[string]*rate.Limiter
	mutex         sync.Mutex
}

func NewClientLimiter(config RateLimitConfig) *ClientLimiter {
	cl := &ClientLimiter{
		config:    config,
		endpoints: make(map[string]*rate.Limiter),
	}

	if config.Enabled {
		cl.globalLimiter = rate.NewLimiter(
			rate.Limit(config.RequestsPerSecond),
			config.BurstSize,
		)
	}

	return cl
}

// Acquire takes a token for endpoint. In blocking mode it waits until one is available or
// ctx ends; otherwise an empty bucket fails with utils.ErrRateLimited.
func (cl *ClientLimiter) Acquire(ctx context.Context, endpoint string) error {
	if !cl.config.Enabled {
		return nil
	}

	limiter := cl.limiterFor(endpoint)
	if cl.config.Block {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limit on %s: %w", endpoint, err)
		}
		return nil
	}

	if !limiter.Allow() {
		return utils.NewAppError(utils.CodeTransport, "client rate limit exceeded", utils.ErrRateLimited).
			WithDetail("endpoint", endpoint)
	}
	return nil
}

func (cl *ClientLimiter) limiterFor(endpoint string) *rate.Limiter {
	limit, exists := cl.config.EndpointLimits[endpoint]
	if !exists {
		return cl.globalLimiter
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if limiter, ok := cl.endpoints[endpoint]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
	cl.endpoints[endpoint] = limiter
	return limiter
}

func (cl *ClientLimiter) IsEnabled() bool {
	return cl.config.Enabled
}
