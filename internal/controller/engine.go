/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package controller drives the webui workload towards the configuration
// implied by its relations.
package controller

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/artifacts"
	"github.com/cappyzawa/webui-operator/internal/checks"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/controller/managers"
	"github.com/cappyzawa/webui-operator/internal/controller/phases"
	"github.com/cappyzawa/webui-operator/internal/controller/reconciler"
	"github.com/cappyzawa/webui-operator/internal/endpoint"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/status"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

var tracer = otel.Tracer("github.com/cappyzawa/webui-operator/internal/controller")

// observer is a relation requirer whose new payloads start a pass
type observer interface {
	Name() string
	Observe(ctx context.Context) (int, error)
}

// Options holds the collaborators of an Engine
type Options struct {
	Config        *config.OperatorConfig
	Exchange      relation.Exchange
	Leadership    relation.Leadership
	ObservedStore relation.ObservedStore
	Supervisor    supervisor.Supervisor
	Addresses     endpoint.AddressSource
	Unit          managers.UnitTools
	StatusSetter  status.Setter

	// Application defaults to the service name
	Application string

	// Recorder and Subject are optional. Events are recorded against
	// Subject.
	Recorder record.EventRecorder
	Subject  runtime.Object

	// Metrics defaults to a fresh, unregistered collector
	Metrics *metrics.Collector
	// Clock defaults to the real clock
	Clock clock.PassiveClock
}

// Engine is the single entry point of every pass. Passes never overlap.
type Engine struct {
	mu sync.Mutex

	cfg      *config.OperatorConfig
	checker  *checks.Checker
	pipeline *reconciler.Pipeline
	recorder record.EventRecorder
	subject  runtime.Object
	metrics  *metrics.Collector
	clock    clock.PassiveClock

	artifactManager *managers.ArtifactManager
	planManager     *managers.PlanManager
	publishManager  *managers.PublishManager
	statusManager   *managers.StatusManager

	observers []observer
	pending   []Trigger
	enqueue   func(Trigger)
}

var _ reconcile.TypedReconciler[Trigger] = (*Engine)(nil)

// NewEngine wires the checks, managers and requirers into an Engine.
func NewEngine(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultOperatorConfig()
	}
	if opts.Exchange == nil || opts.Leadership == nil || opts.Supervisor == nil {
		return nil, fmt.Errorf("exchange, leadership and supervisor are required")
	}
	if opts.Unit == nil || opts.StatusSetter == nil {
		return nil, fmt.Errorf("unit tools and status setter are required")
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector()
	}
	c := opts.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	subject := opts.Subject
	if subject == nil {
		subject = &corev1.ObjectReference{Kind: "Application", Name: cfg.Workload.ServiceName}
	}

	builder, err := artifacts.NewBuilder(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		pipeline: reconciler.NewPipeline(),
		recorder: opts.Recorder,
		subject:  subject,
		metrics:  m,
		clock:    c,
	}

	rels := cfg.Relations
	databases := make(map[string]*relation.Requirer[v0.DatabaseProviderData], 2)
	for _, name := range rels.RequiredDatabases() {
		r := relation.NewRequirer[v0.DatabaseProviderData](opts.Exchange, name, opts.ObservedStore)
		r.OnAvailable(func(ctx context.Context, rel relation.Relation, _ v0.DatabaseProviderData) {
			e.notify(ctx, Trigger{Kind: TriggerDatabaseCreated, Endpoint: rel.Name})
		})
		databases[name] = r
		e.observers = append(e.observers, r)
	}

	n4 := relation.NewRequirer[v0.N4ProviderData](opts.Exchange, rels.FivegN4, opts.ObservedStore)
	n4.OnAvailable(func(ctx context.Context, rel relation.Relation, _ v0.N4ProviderData) {
		e.notify(ctx, Trigger{Kind: TriggerFivegN4Available, Endpoint: rel.Name})
	})
	gnb := relation.NewRequirer[v0.GnbIdentityData](opts.Exchange, rels.GnbIdentity, opts.ObservedStore)
	gnb.OnAvailable(func(ctx context.Context, rel relation.Relation, _ v0.GnbIdentityData) {
		e.notify(ctx, Trigger{Kind: TriggerGnbIdentityAvailable, Endpoint: rel.Name})
	})
	e.observers = append(e.observers, n4, gnb)

	e.checker = checks.New(checks.Options{
		Config:     cfg,
		Exchange:   opts.Exchange,
		Leadership: opts.Leadership,
		Supervisor: opts.Supervisor,
		Databases:  databases,
	})
	deriver := endpoint.NewEndpointDeriver(cfg.Workload, opts.Addresses)

	e.artifactManager = managers.NewArtifactManager(builder, opts.Supervisor, opts.Recorder, m)
	e.planManager = managers.NewPlanManager(opts.Supervisor, cfg.Workload, deriver, opts.ObservedStore, opts.Recorder, m)
	e.publishManager = managers.NewPublishManager(managers.PublishManagerOptions{
		Config:     cfg,
		Checker:    e.checker,
		Deriver:    deriver,
		Exchange:   opts.Exchange,
		Leadership: opts.Leadership,
		Supervisor: opts.Supervisor,
		Unit:       opts.Unit,
		Recorder:   opts.Recorder,
		Metrics:    m,

		Application: opts.Application,
	})
	e.statusManager = managers.NewStatusManager(cfg, e.checker, opts.StatusSetter, opts.Recorder, m)

	return e, nil
}

// SetEnqueue sets the function used to request a pass for triggers derived
// from newly observed relation data.
func (e *Engine) SetEnqueue(fn func(Trigger)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueue = fn
}

// Checker returns the checker the engine gates on
func (e *Engine) Checker() *checks.Checker {
	return e.checker
}

// Status projects the current status without side effects
func (e *Engine) Status(ctx context.Context) status.Report {
	return e.statusManager.Project(ctx)
}

// Reconcile runs one pass for t
func (e *Engine) Reconcile(ctx context.Context, t Trigger) (reconcile.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if timeout := e.cfg.Dispatch.PassTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := e.clock.Now()
	ctx, span := tracer.Start(ctx, "webui.Reconcile", trace.WithAttributes(
		attribute.String("trigger", t.String()),
	))
	defer span.End()

	log := ctrl.LoggerFrom(ctx).WithValues("trigger", t.String())
	ctx = ctrl.LoggerInto(ctx, log)

	action := Route(e.cfg, t)
	if action != ActionStatus && e.checker.IsLeader(ctx) {
		derived := e.observe(ctx)
		if len(derived) > 0 && action == ActionObserve {
			log.V(1).Info("New relation data, converging", "derived", len(derived))
			action = ActionConverge
		}
	}
	span.SetAttributes(attribute.String("action", string(action)))

	phaseCtx := &phases.PhaseContext{
		Trigger:         t.String(),
		Config:          e.cfg,
		Logger:          log,
		Recorder:        e.recorder,
		Subject:         e.subject,
		Checker:         e.checker,
		ArtifactManager: e.artifactManager,
		PlanManager:     e.planManager,
		PublishManager:  e.publishManager,
		StatusManager:   e.statusManager,
	}

	result, err := e.pipeline.Execute(ctx, phaseCtx, action == ActionConverge)

	outcome := metrics.ResultSuccess
	switch {
	case err != nil:
		outcome = metrics.ResultError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case action != ActionConverge:
		outcome = metrics.ResultSkipped
	}
	span.SetAttributes(attribute.String("status", phaseCtx.Report.Status.String()))
	e.metrics.ObservePass(string(t.Kind), outcome, e.clock.Since(start))

	log.V(1).Info("Pass finished", "action", string(action), "status", phaseCtx.Report.Status.String())
	return result, err
}

// observe refreshes every requirer and returns the triggers derived from
// newly available payloads.
func (e *Engine) observe(ctx context.Context) []Trigger {
	log := ctrl.LoggerFrom(ctx)

	e.pending = e.pending[:0]
	for _, o := range e.observers {
		if _, err := o.Observe(ctx); err != nil {
			log.Error(err, "Failed to observe relation", "relation", o.Name())
		}
	}
	return append([]Trigger(nil), e.pending...)
}

func (e *Engine) notify(ctx context.Context, t Trigger) {
	ctrl.LoggerFrom(ctx).V(1).Info("Relation data available", "derived", t.String())
	e.pending = append(e.pending, t)
	if e.enqueue != nil {
		e.enqueue(t)
	}
}
