package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumandas0/entropic-model/internal/mockapi"
	"github.com/sumandas0/entropic-model/pkg/collection"
	"github.com/sumandas0/entropic-model/pkg/model"
	"github.com/sumandas0/entropic-model/pkg/sdk"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id>",
		Short: "Fetch one record into a model and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.resource()
			if err != nil {
				return err
			}

			m := model.New(recordDefinition{kind: res.Name()}, model.Attributes{"id": args[0]}, app.resourceOptions(res)...)
			if _, err := m.Fetch(cmd.Context(), m); err != nil {
				return fmt.Errorf("fetch %s/%s: %w", res.Name(), args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), m.Attributes())
		},
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load a collection and print its records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.resource()
			if err != nil {
				return err
			}

			filterFlags, _ := cmd.Flags().GetStringArray("filter")
			filters, err := parsePairs(filterFlags)
			if err != nil {
				return err
			}
			query := url.Values{}
			for key, value := range filters {
				query.Set(key, value)
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			def := recordDefinition{kind: res.Name()}
			records := collection.New[*model.Model](nil,
				collection.WithKind[*model.Model](res.Name()),
				collection.WithFactory[*model.Model](func(attrs model.Attributes) *model.Model {
					return model.New(def, attrs, app.modelOptions()...)
				}),
				collection.WithMetaOptions[*model.Model](app.resourceOptions(res)...),
			)

			if _, err := records.Load(cmd.Context(), &sdk.Request{Query: query}); err != nil {
				return fmt.Errorf("list %s: %w", res.Name(), err)
			}
			return printJSON(cmd.OutOrStdout(), attributesOf(records.Get()))
		},
	}

	cmd.Flags().StringArray("filter", nil, "Field filter as key=value (repeatable)")
	cmd.Flags().Int("limit", 0, "Maximum number of records to load")
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate a JSON record against validator tag rules",
		Long:  "Validate a JSON record against rules given as field=tag, for example --rule name=required,max=255. With --submit a valid record is created on the configured resource.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ruleFlags, _ := cmd.Flags().GetStringArray("rule")
			rules, err := parsePairs(ruleFlags)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			def := recordDefinition{kind: app.cfg.Client.Resource, rules: rules}
			opts := app.modelOptions()
			submit, _ := cmd.Flags().GetBool("submit")
			var res *sdk.ResourceService
			if submit {
				if res, err = app.resource(); err != nil {
					return err
				}
				opts = app.resourceOptions(res)
			}

			m, err := model.FromJSON(def, data, opts...)
			if err != nil {
				return err
			}

			if !submit {
				m.Validate(nil)
			} else if resp, err := m.ValidateAndCreate(cmd.Context(), m, nil); err != nil {
				return fmt.Errorf("create %s: %w", res.Name(), err)
			} else if resp != nil && resp.Data != nil {
				m.Set(resp.Data)
			}

			report := reportFor(m)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if submit && report.Valid {
				if err := printJSON(cmd.OutOrStdout(), m.Attributes()); err != nil {
					return err
				}
			}
			if !report.Valid {
				return errors.New("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringArray("rule", nil, "Validation rule as field=tag (repeatable)")
	cmd.Flags().Bool("submit", false, "Create the record on the resource when it is valid")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the resource API and report client components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			remote := "healthy"
			healthErr := app.client.HealthCheck(cmd.Context())
			if healthErr != nil {
				remote = healthErr.Error()
			}

			if err := printJSON(cmd.OutOrStdout(), map[string]any{
				"base_url":      app.cfg.Client.BaseURL,
				"remote":        remote,
				"observability": app.obs.Status(),
				"resilience":    app.client.BreakerStatus(),
			}); err != nil {
				return err
			}
			return healthErr
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func newMockServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory resource API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := app.cfg.MockServer
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				cfg.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Port = port
			}

			store := mockapi.NewStore()
			if seed, _ := cmd.Flags().GetString("seed"); seed != "" {
				if err := seedStore(store, seed); err != nil {
					return err
				}
			}

			server := mockapi.NewServer(cfg,
				mockapi.WithStore(store),
				mockapi.WithLogger(app.obs.GetLogging()),
				mockapi.WithMetrics(app.obs.GetMetrics()),
				mockapi.WithTracing(app.obs.GetTracing()),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app, server.NewHTTPServer())
		},
	}

	cmd.Flags().String("host", "", "Listen host (overrides mock_server.host)")
	cmd.Flags().Int("port", 0, "Listen port (overrides mock_server.port)")
	cmd.Flags().String("seed", "", "JSON file mapping resource names to initial records")
	return cmd
}

func serve(ctx context.Context, app *application, server *http.Server) error {
	logger := app.obs.GetLogging().WithOperation("mock-server")

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("mock server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed to start: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutting down mock server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.obs.GetLogging().WithError(err).Error().
			Str("operation", "mock-server").
			Msg("mock server forced to shutdown")
		return err
	}

	logger.Info().Msg("mock server shutdown completed")
	return nil
}

func seedStore(store *mockapi.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed map[string][]mockapi.Record
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to decode seed file: %w", err)
	}
	for resource, records := range seed {
		store.Upsert(resource, records)
	}
	return nil
}
