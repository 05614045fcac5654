// Package sdk is an HTTP transport for models and collections. A Client turns a REST
// resource into a meta.Endpoints table:
//
//	client, _ := sdk.NewClient("http://localhost:8080")
//	book := model.New(bookDefinition{}, nil, meta.WithEndpoints(client.Resource("books").Endpoints()))
package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sumandas0/entropic-model/internal/resilience"
	"github.com/sumandas0/entropic-model/internal/security"
	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

const (
	defaultTimeout = 30 * time.Second
	apiV1BasePath  = "/api/v1"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger

	limiter       *security.ClientLimiter
	breakerConfig resilience.CircuitBreakerConfig
	breakers      *resilience.CircuitBreakerManager
	retry         *resilience.RetryManager
	sanitizer     *security.InputSanitizer
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit throttles the client to rps requests per second with the given burst.
// Requests beyond the budget fail fast with utils.ErrRateLimited.
func WithRateLimit(rps float64, burst int) ClientOption {
	return WithRateLimiter(security.NewClientLimiter(security.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: rps,
		BurstSize:         burst,
	}))
}

func WithRateLimiter(limiter *security.ClientLimiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithCircuitBreaker guards every resource verb with its own breaker.
func WithCircuitBreaker(config resilience.CircuitBreakerConfig) ClientOption {
	return func(c *Client) {
		c.breakerConfig = config
	}
}

func WithRetry(config resilience.RetryConfig, strategy resilience.RetryStrategy) ClientOption {
	return func(c *Client) {
		c.retry = resilience.NewRetryManager(config, strategy)
	}
}

// WithSanitizer cleans request bodies before they are encoded.
func WithSanitizer(config security.SanitizerConfig) ClientOption {
	return func(c *Client) {
		c.sanitizer = security.NewInputSanitizer(config)
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	client := &Client{
		baseURL: parsedURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    log.Logger,
		limiter:   security.NewClientLimiter(security.RateLimitConfig{}),
		retry:     resilience.NewRetryManager(resilience.RetryConfig{}, resilience.StrategyExponential),
		sanitizer: security.NewInputSanitizer(security.SanitizerConfig{}),
	}

	for _, opt := range opts {
		opt(client)
	}
	client.breakers = resilience.NewCircuitBreakerManager(client.breakerConfig,
		resilience.WithFailureClassifier(isTransportFailure),
		resilience.WithBreakerLogger(client.logger))

	return client, nil
}

// Resource returns the service for the collection mounted at /api/v1/{name}.
func (c *Client) Resource(name string) *ResourceService {
	return &ResourceService{client: c, name: name}
}

// BreakerStatus reports the circuit breakers created so far.
func (c *Client) BreakerStatus() map[string]any {
	return c.breakers.Status()
}

// HealthCheck checks if the remote service is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// call runs one request through rate limiting, retry and the endpoint's breaker.
func (c *Client) call(ctx context.Context, endpoint, method, path string, query url.Values, body any) (*meta.Response, error) {
	if err := c.limiter.Acquire(ctx, endpoint); err != nil {
		return nil, err
	}

	body, err := c.sanitizeBody(body)
	if err != nil {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "request body rejected", err).
			WithDetail("endpoint", endpoint)
	}

	result, err := c.retry.ExecuteWithResult(ctx, func() (any, error) {
		return c.breakers.ExecuteWithContext(ctx, endpoint, func(ctx context.Context) (any, error) {
			return c.doJSONRequest(ctx, method, path, query, body)
		})
	}, resilience.TransportRetryableErrors)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("endpoint", endpoint).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return nil, err
	}

	return result.(*meta.Response), nil
}

func (c *Client) sanitizeBody(body any) (any, error) {
	if body == nil || !c.sanitizer.IsEnabled() {
		return body, nil
	}
	switch v := body.(type) {
	case map[string]any:
		return c.sanitizer.SanitizeAttributes(v)
	case []any:
		return c.sanitizer.SanitizeValue(v)
	case []map[string]any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = item
		}
		return c.sanitizer.SanitizeValue(items)
	default:
		return body, nil
	}
}

// doRequest performs an HTTP request with proper error handling
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// doJSONRequest performs a JSON request and decodes the data envelope
func (c *Client) doJSONRequest(ctx context.Context, method, path string, query url.Values, reqBody any) (*meta.Response, error) {
	resp, err := c.doRequest(ctx, method, path, query, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.handleErrorResponse(resp.StatusCode, raw)
	}

	return decodeResponse(resp.StatusCode, raw)
}

type envelope struct {
	Data jsoniter.RawMessage `json:"data"`
}

func decodeResponse(status int, raw []byte) (*meta.Response, error) {
	out := &meta.Response{Status: status, Raw: raw}
	if status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &out.Items); err != nil {
			return nil, fmt.Errorf("failed to decode response items: %w", err)
		}
	case '{':
		if err := json.Unmarshal(data, &out.Data); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to decode response: unexpected data %q", string(data))
	}

	return out, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// handleErrorResponse processes error responses from the API
func (c *Client) handleErrorResponse(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return &APIError{
			Type:    errorTypeFor("", status),
			Message: string(body),
			Code:    status,
		}
	}

	return &APIError{
		Type:    errorTypeFor(env.Error.Code, status),
		Message: env.Error.Message,
		Details: env.Error.Details,
		Code:    status,
	}
}
