package main

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/controller"
	"github.com/cappyzawa/webui-operator/internal/hookenv"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

// newLoader returns the configured ConfigLoader
func newLoader(opts *rootOptions) (config.ConfigLoader, error) {
	if !opts.configMap {
		return config.NewFileLoader(opts.configFile), nil
	}

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	loaderOpts := config.DefaultLoaderOptions()
	if opts.loaderNamespace != "" {
		loaderOpts.Namespace = opts.loaderNamespace
	}
	return config.NewConfigMapLoader(client, loaderOpts), nil
}

// loadConfig loads the operator configuration, falling back to the defaults
// when none is provided.
func loadConfig(ctx context.Context, loader config.ConfigLoader) (*config.OperatorConfig, error) {
	cfg, err := loader.Load(ctx)
	if errors.Is(err, config.ErrConfigNotFound) {
		ctrl.LoggerFrom(ctx).V(1).Info("No operator configuration, using defaults")
		return config.DefaultOperatorConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newHookEnv returns the hook tool adapter for the current hook, or for
// unit through juju-exec.
func newHookEnv(unit string) (*hookenv.HookEnv, error) {
	if unit == "" {
		return hookenv.FromEnvironment(hookenv.ExecRunner{})
	}
	return hookenv.New(hookenv.NewJujuExecRunner(unit), unit)
}

// newRecorder returns an event recorder that writes events to the log
func newRecorder(ctx context.Context, component string) (record.EventRecorder, func()) {
	log := ctrl.LoggerFrom(ctx).WithName("events")
	broadcaster := record.NewBroadcaster()
	broadcaster.StartLogging(func(format string, args ...interface{}) {
		log.V(1).Info(fmt.Sprintf(format, args...))
	})
	recorder := broadcaster.NewRecorder(scheme.Scheme, corev1.EventSource{Component: component})
	return recorder, broadcaster.Shutdown
}

// engineDeps are the process level collaborators of an engine
type engineDeps struct {
	env      *hookenv.HookEnv
	recorder record.EventRecorder
	metrics  *metrics.Collector
}

// newEngine wires an engine for cfg against the unit's hook tools and the
// workload's supervisor.
func newEngine(cfg *config.OperatorConfig, deps engineDeps) (*controller.Engine, error) {
	sup, err := supervisor.NewPebbleSupervisor(cfg.Workload.Socket(), cfg.Workload.ChangeTimeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Workload.Socket(), err)
	}

	return controller.NewEngine(controller.Options{
		Config:        cfg,
		Exchange:      deps.env,
		Leadership:    deps.env,
		ObservedStore: deps.env,
		Supervisor:    sup,
		Addresses:     deps.env,
		Unit:          deps.env,
		StatusSetter:  deps.env,
		Application:   deps.env.Application(),
		Recorder:      deps.recorder,
		Subject: &corev1.ObjectReference{
			Kind: "Application",
			Name: deps.env.Application(),
		},
		Metrics: deps.metrics,
	})
}
