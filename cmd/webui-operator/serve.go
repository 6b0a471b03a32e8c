package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/controller"
	"github.com/cappyzawa/webui-operator/internal/metrics"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Converge continuously, outside of hook executions",
		Long: `Run passes from a single worker. Update-status is triggered periodically
and every change of the operator configuration restarts the worker with the
new configuration. Hook tools are reached through juju-exec.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.unit == "" {
				return errors.New("--unit is required")
			}
			ctx := ctrl.LoggerInto(cmd.Context(), ctrl.Log.WithName("serve"))

			loader, err := newLoader(opts)
			if err != nil {
				return err
			}
			defer func() { _ = loader.Close() }()

			env, err := newHookEnv(opts.unit)
			if err != nil {
				return err
			}
			recorder, stop := newRecorder(ctx, "webui-operator")
			defer stop()

			collector := metrics.NewCollector()
			if err := crmetrics.Registry.Register(collector); err != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(err, &already) {
					return fmt.Errorf("failed to register metrics: %w", err)
				}
			}
			if metricsAddr != "" && metricsAddr != "0" {
				go serveMetrics(ctx, metricsAddr)
			}

			logger := func(cfg *config.OperatorConfig) logr.Logger { return opts.logger(cfg, "serve") }
			return serve(ctx, loader, engineDeps{env: env, recorder: recorder, metrics: collector}, logger)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8080",
		"Address the metrics endpoint binds to. Use 0 to disable it.")
	return cmd
}

// serve runs a dispatcher for the current configuration until ctx is done.
// A configuration change stops the dispatcher and starts a new one.
func serve(ctx context.Context, loader config.ConfigLoader, deps engineDeps, logger func(*config.OperatorConfig) logr.Logger) error {
	log := ctrl.LoggerFrom(ctx)

	events, err := loader.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch configuration: %w", err)
	}

	for {
		cfg, err := loadConfig(ctx, loader)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		passDeps := deps
		if !cfg.Features.EnableMetrics {
			passDeps.metrics = nil
		}

		engine, err := newEngine(cfg, passDeps)
		if err != nil {
			return err
		}
		dispatcher := controller.NewDispatcher(engine, clock.RealClock{}, cfg.Dispatch.UpdateStatusInterval.Duration)
		engine.SetEnqueue(dispatcher.Enqueue)
		dispatcher.Enqueue(controller.Trigger{Kind: controller.TriggerConfigChanged})

		runCtx, cancel := context.WithCancel(ctrl.LoggerInto(ctx, logger(cfg)))
		done := make(chan error, 1)
		go func() { done <- dispatcher.Start(runCtx) }()

		restart, err := waitForChange(runCtx, events)
		cancel()
		if derr := <-done; derr != nil && err == nil {
			err = derr
		}
		if err != nil || !restart {
			return err
		}
		log.Info("Operator configuration changed, restarting dispatcher")
	}
}

// waitForChange blocks until the configuration changes or ctx is done. It
// reports whether the dispatcher should be restarted.
func waitForChange(ctx context.Context, events <-chan config.ConfigEvent) (bool, error) {
	log := ctrl.LoggerFrom(ctx)
	for {
		select {
		case <-ctx.Done():
			return false, nil
		case ev, ok := <-events:
			if !ok {
				<-ctx.Done()
				return false, nil
			}
			if ev.Type == config.ConfigEventError {
				log.Error(ev.Error, "Configuration watch error")
				continue
			}
			return true, nil
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	log := ctrl.LoggerFrom(ctx).WithValues("address", addr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(crmetrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err, "Metrics server failed")
	}
}
