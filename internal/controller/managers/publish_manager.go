package managers

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/checks"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/endpoint"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
	"github.com/cappyzawa/webui-operator/internal/workload"
)

// UnitTools are the unit-level settings the operator maintains
type UnitTools interface {
	SetWorkloadVersion(ctx context.Context, version string) error
	OpenPort(ctx context.Context, port int) error
	Model(ctx context.Context) (string, error)
}

// PublishManager writes the data this application owns: database requests,
// the ingress request and the endpoints advertised to dependents.
type PublishManager struct {
	cfg        *config.OperatorConfig
	checker    *checks.Checker
	deriver    *endpoint.EndpointDeriver
	supervisor supervisor.Supervisor
	unit       UnitTools
	recorder   record.EventRecorder
	metrics    *metrics.Collector

	webui      *relation.Provider[v0.WebuiEndpointData]
	management *relation.Provider[v0.ManagementEndpointData]
	databases  []*relation.Provider[v0.DatabaseRequestData]
	ingress    *relation.Provider[v0.IngressRequirerData]

	application string
}

// PublishManagerOptions holds the collaborators of a PublishManager
type PublishManagerOptions struct {
	Config     *config.OperatorConfig
	Checker    *checks.Checker
	Deriver    *endpoint.EndpointDeriver
	Exchange   relation.Exchange
	Leadership relation.Leadership
	Supervisor supervisor.Supervisor
	Unit       UnitTools
	Recorder   record.EventRecorder
	Metrics    *metrics.Collector

	// Application is the name routed to by the ingress. It defaults to
	// the service name.
	Application string
}

// NewPublishManager creates a new PublishManager instance
func NewPublishManager(opts PublishManagerOptions) *PublishManager {
	rels := opts.Config.Relations
	pm := &PublishManager{
		cfg:        opts.Config,
		checker:    opts.Checker,
		deriver:    opts.Deriver,
		supervisor: opts.Supervisor,
		unit:       opts.Unit,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		webui:      relation.NewProvider[v0.WebuiEndpointData](opts.Exchange, opts.Leadership, rels.SdcoreConfig),
		management: relation.NewProvider[v0.ManagementEndpointData](opts.Exchange, opts.Leadership, rels.SdcoreManagement),
		ingress:    relation.NewProvider[v0.IngressRequirerData](opts.Exchange, opts.Leadership, rels.Ingress),

		application: opts.Application,
	}
	if pm.application == "" {
		pm.application = opts.Config.Workload.ServiceName
	}
	for _, name := range rels.RequiredDatabases() {
		pm.databases = append(pm.databases, relation.NewProvider[v0.DatabaseRequestData](opts.Exchange, opts.Leadership, name))
	}
	return pm
}

// RequestDatabases asks every related database application for its
// database. Endpoints without a relation are skipped.
func (pm *PublishManager) RequestDatabases(ctx context.Context) error {
	names := map[string]string{
		pm.cfg.Relations.CommonDatabase: pm.cfg.Databases.CommonName,
		pm.cfg.Relations.AuthDatabase:   pm.cfg.Databases.AuthName,
	}
	for _, p := range pm.databases {
		req := v0.DatabaseRequestData{Database: names[p.Name()], ExtraUserRoles: pm.cfg.Databases.ExtraUserRoles}
		if err := p.Publish(ctx, req); err != nil {
			if errors.Is(err, relation.ErrNoRelation) {
				continue
			}
			return fmt.Errorf("failed to request database on %s: %w", p.Name(), err)
		}
	}
	return nil
}

// RequestIngress asks the ingress provider to route to the HTTP port of every
// unit, with the route prefix stripped. Nothing is requested without an
// ingress relation or while the model name is unknown.
func (pm *PublishManager) RequestIngress(ctx context.Context) error {
	log := ctrl.LoggerFrom(ctx)

	model, err := pm.unit.Model(ctx)
	if err != nil {
		log.Info("Model name unavailable, skipping ingress request", "error", err.Error())
		pm.metrics.Published(pm.ingress.Name(), metrics.ResultSkipped)
		return nil
	}

	data := v0.NewIngressRequirerData(model, pm.application, pm.cfg.Workload.HTTPPort)
	if err := pm.ingress.Publish(ctx, data); err != nil {
		if errors.Is(err, relation.ErrNoRelation) {
			return nil
		}
		pm.metrics.Published(pm.ingress.Name(), metrics.ResultError)
		return fmt.Errorf("failed to request ingress on %s: %w", pm.ingress.Name(), err)
	}
	pm.metrics.Published(pm.ingress.Name(), metrics.ResultSuccess)
	return nil
}

// PublishEndpoints advertises the webui and management endpoints on their
// relations. An endpoint is published only while its relation exists and
// the service is running.
func (pm *PublishManager) PublishEndpoints(ctx context.Context, subject runtime.Object) error {
	log := ctrl.LoggerFrom(ctx)

	if !pm.checker.ServiceRunning(ctx) {
		log.V(1).Info("Service is not running, skipping endpoint publication")
		return nil
	}

	if pm.checker.RelationEstablished(ctx, pm.webui.Name()) {
		data := v0.WebuiEndpointData{WebuiURL: pm.deriver.WebuiURL()}
		if err := pm.record(ctx, subject, pm.webui.Name(), pm.webui.Publish(ctx, data)); err != nil {
			return err
		}
	}

	if pm.checker.RelationEstablished(ctx, pm.management.Name()) {
		url, err := pm.deriver.ManagementURL(ctx)
		if err != nil {
			log.Info("Management endpoint unavailable", "error", err.Error())
			pm.metrics.Published(pm.management.Name(), metrics.ResultSkipped)
			return nil
		}
		data := v0.ManagementEndpointData{ManagementURL: url}
		if err := pm.record(ctx, subject, pm.management.Name(), pm.management.Publish(ctx, data)); err != nil {
			return err
		}
	}

	return nil
}

func (pm *PublishManager) record(ctx context.Context, subject runtime.Object, name string, err error) error {
	if err != nil {
		pm.metrics.Published(name, metrics.ResultError)
		emit(pm.recorder, subject, EventTypeWarning, EventReasonPublishError, "Failed to publish on %s: %v", name, err)
		return fmt.Errorf("failed to publish on %s: %w", name, err)
	}
	pm.metrics.Published(name, metrics.ResultSuccess)
	ctrl.LoggerFrom(ctx).V(1).Info("Published endpoint", "relation", name)
	return nil
}

// OpenPorts opens the gRPC and HTTP ports of the workload
func (pm *PublishManager) OpenPorts(ctx context.Context) error {
	for _, port := range []int{pm.cfg.Workload.GRPCPort, pm.cfg.Workload.HTTPPort} {
		if err := pm.unit.OpenPort(ctx, port); err != nil {
			return err
		}
	}
	return nil
}

// SetWorkloadVersion reports the version shipped in the workload image.
// Nothing is reported when the image carries no version.
func (pm *PublishManager) SetWorkloadVersion(ctx context.Context) error {
	version := workload.Version(ctx, pm.supervisor, pm.cfg.Workload.VersionFile)
	if version == "" {
		return nil
	}
	return pm.unit.SetWorkloadVersion(ctx, version)
}
