package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/httpclient"
	"github.com/stacklok/toolhive-catalog/internal/status"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
	"github.com/stacklok/toolhive-catalog/internal/sync/coordinator"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
)

// runtime holds the long-lived components shared by sync and serve
type runtime struct {
	cfg         *config.Config
	secrets     config.Secrets
	telemetry   *telemetry.Telemetry
	store       storage.BlobStore
	statusSvc   status.StatusPersistence
	coordinator coordinator.Coordinator
}

// loadConfig reads the file named by --config, or defaults when it is unset
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newRuntime wires configuration, telemetry, the store and the pipelines.
// A missing GitHub token does not fail here; runs report it as a
// configuration error so serve can still answer reads. When configSource is
// set, each pipeline run reads its settings from it.
func newRuntime(
	ctx context.Context, cfg *config.Config, secrets config.Secrets, configSource func() *config.Config,
) (*runtime, error) {
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := storage.NewStore(ctx, &cfg.Storage, secrets)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Storage.Type, err)
	}

	var api github.API
	client, err := github.NewClient(httpclient.NewDefaultClient(cfg.GitHub.GetTimeout()), cfg.GitHub.APIURL, secrets.GitHubToken)
	switch {
	case errors.Is(err, github.ErrMissingCredential):
		slog.Warn("No GitHub token configured, pipeline runs will fail",
			"env", config.EnvPrefix+"_GITHUB_TOKEN")
	case err != nil:
		_ = store.Close()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	default:
		api = client
	}

	metrics, err := telemetry.NewPipelineMetrics(tel.MeterProvider())
	if err != nil {
		_ = store.Close()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	managerOpts := []pkgsync.Option{
		pkgsync.WithTracer(tel.Tracer(telemetry.PipelineTracerName)),
		pkgsync.WithMetrics(metrics),
	}
	if configSource != nil {
		managerOpts = append(managerOpts, pkgsync.WithConfigSource(configSource))
	}
	manager := pkgsync.NewManager(cfg, api, store, managerOpts...)
	statusSvc := status.NewStatusPersistence(store)

	var coordOpts []coordinator.Option
	if locker, ok := store.(storage.Locker); ok {
		coordOpts = append(coordOpts, coordinator.WithLocker(locker))
	}

	slog.Debug("Runtime initialized",
		"storage", cfg.Storage.Type,
		"github_api", cfg.GitHub.APIURL,
		"telemetry", tel.Enabled(),
		"cross_process_lock", len(coordOpts) > 0)

	return &runtime{
		cfg:         cfg,
		secrets:     secrets,
		telemetry:   tel,
		store:       store,
		statusSvc:   statusSvc,
		coordinator: coordinator.New(manager, statusSvc, cfg, coordOpts...),
	}, nil
}

// Close releases the store and flushes telemetry
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	if err := r.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
