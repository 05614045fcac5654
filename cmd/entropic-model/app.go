package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumandas0/entropic-model/config"
	"github.com/sumandas0/entropic-model/internal/integration"
	"github.com/sumandas0/entropic-model/internal/security"
	"github.com/sumandas0/entropic-model/pkg/meta"
	"github.com/sumandas0/entropic-model/pkg/sdk"
)

// application holds the components shared by every command.
type application struct {
	cfg    *config.Config
	obs    *integration.ObservabilityManager
	client *sdk.Client
}

func newApplication(cmd *cobra.Command) (*application, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	if resource, _ := cmd.Flags().GetString("resource"); resource != "" {
		cfg.Client.Resource = resource
	}

	obs, err := integration.NewObservabilityManager(cfg.Tracing, cfg.Logging, cfg.Metrics, integration.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	app := &application{cfg: cfg, obs: obs}
	logger := obs.GetLogging()

	app.client, err = sdk.NewClient(cfg.Client.BaseURL,
		sdk.WithTimeout(cfg.Client.Timeout),
		sdk.WithLogger(logger.GetZerologLogger()),
		sdk.WithRateLimiter(security.NewClientLimiter(cfg.RateLimit)),
		sdk.WithCircuitBreaker(cfg.Resilience.CircuitBreaker),
		sdk.WithRetry(cfg.Resilience.Retry, cfg.Resilience.RetryStrategy),
		sdk.WithSanitizer(cfg.Sanitizer),
	)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}

	logger.WithOperation(cmd.Name()).Debug().
		Str("base_url", cfg.Client.BaseURL).
		Str("resource", cfg.Client.Resource).
		Msg("application initialized")

	return app, nil
}

// resource returns the service for the configured collection.
func (app *application) resource() (*sdk.ResourceService, error) {
	if app.cfg.Client.Resource == "" {
		return nil, errors.New("a resource name is required (--resource or client.resource)")
	}
	return app.client.Resource(app.cfg.Client.Resource), nil
}

// modelOptions configures models built by the factory of a collection. They carry no
// endpoints of their own.
func (app *application) modelOptions() []meta.Option {
	return app.obs.MetaOptions()
}

// resourceOptions configures a model or collection bound to res.
func (app *application) resourceOptions(res *sdk.ResourceService) []meta.Option {
	return append(app.modelOptions(), meta.WithEndpoints(res.Endpoints()))
}

func (app *application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.obs.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
