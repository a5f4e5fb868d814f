package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-catalog/internal/api"
	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverIdleTimeout      = 60 * time.Second

	// Triggered runs hold the request open for the whole pipeline
	serverWriteTimeout = 30 * time.Minute
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API and run pipelines on their schedule",
		Long: `Start the catalog API server. Each pipeline runs on its configured sync
interval, and can be triggered with POST /v1/sync/{pipeline}. The published
record sets are served from GET /v1/catalog/{set}.

When --config is given the file is watched, and changes to the pipeline and
executor settings apply from the next run. Storage and server settings need
a restart.`,
		RunE: runServe,
	}
	cmd.Flags().String("address", "", "Address to listen on (overrides the configuration)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cfg          *config.Config
		configSource func() *config.Config
	)
	if path := viper.GetString("config"); path != "" {
		manager, err := config.NewConfigManager(path)
		if err != nil {
			return err
		}
		// The copy takes the --address override without touching the managed config
		initial := *manager.GetConfig()
		cfg = &initial
		configSource = manager.GetConfig
		go func() {
			if err := manager.WatchConfig(ctx); err != nil {
				slog.Error("Config watcher stopped, pipeline settings will no longer reload", "error", err)
			}
		}()
	} else {
		var err error
		if cfg, err = loadConfig(); err != nil {
			return err
		}
	}
	if address, _ := cmd.Flags().GetString("address"); address != "" {
		cfg.Server.Address = address
	}

	secrets := config.ResolveSecrets(config.NewEnvViper())
	rt, err := newRuntime(ctx, cfg, secrets, configSource)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultGracefulTimeout)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			slog.Warn("Shutdown incomplete", "error", err)
		}
	}()

	if secrets.TriggerSecret == "" {
		slog.Warn("No trigger secret configured, POST /v1/sync is unauthenticated",
			"env", config.EnvPrefix+"_TRIGGER_SECRET")
	}

	metricsMiddleware, err := telemetry.MetricsMiddleware(rt.telemetry.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		telemetry.TracingMiddleware(rt.telemetry.TracerProvider()),
		api.LoggingMiddleware,
	}
	if metricsMiddleware != nil {
		middlewares = append(middlewares, metricsMiddleware)
	}

	router := api.NewServer(rt.coordinator, rt.store, rt.statusSvc,
		api.WithMiddlewares(middlewares...),
		api.WithTriggerSecret(secrets.TriggerSecret),
	)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadTimeout:       serverReadTimeout,
		ReadHeaderTimeout: serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	coordErr := make(chan error, 1)
	go func() {
		coordErr <- rt.coordinator.Start(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server")
	case err := <-serveErr:
		stop()
		_ = rt.coordinator.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	if err := rt.coordinator.Stop(); err != nil {
		slog.Error("Failed to stop coordinator", "error", err)
	}
	if err := <-coordErr; err != nil {
		slog.Error("Coordinator failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}
