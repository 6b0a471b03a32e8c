package managers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/artifacts"
	"github.com/cappyzawa/webui-operator/internal/checks"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/dependency"
	"github.com/cappyzawa/webui-operator/internal/endpoint"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/status"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

var subject = &corev1.ObjectReference{Kind: "Unit", Name: "webui-0", Namespace: "sdcore"}

type fakeUnit struct {
	version string
	ports   []int
	model   string
	err     error
}

func (f *fakeUnit) SetWorkloadVersion(_ context.Context, version string) error {
	f.version = version
	return f.err
}

func (f *fakeUnit) OpenPort(_ context.Context, port int) error {
	if f.err != nil {
		return f.err
	}
	f.ports = append(f.ports, port)
	return nil
}

func (f *fakeUnit) Model(context.Context) (string, error) {
	if f.model == "" {
		return "", errors.New("JUJU_MODEL_NAME not found")
	}
	return f.model, nil
}

func dbPayload(uris string) v0.DatabaseProviderData {
	return v0.DatabaseProviderData{Username: "banana", Password: "pizza", URIs: uris}
}

type staticAddress string

func (a staticAddress) PrivateAddress(context.Context) (string, error) {
	return string(a), nil
}

type fixture struct {
	cfg      *config.OperatorConfig
	exchange *relation.MemoryExchange
	sup      *supervisor.FakeSupervisor
	checker  *checks.Checker
	deriver  *endpoint.EndpointDeriver
	recorder *record.FakeRecorder
	metrics  *metrics.Collector
	unit     *fakeUnit
}

func newFixture() *fixture {
	cfg := config.DefaultOperatorConfig()
	exchange := relation.NewMemoryExchange()
	sup := supervisor.NewFakeSupervisor()
	return &fixture{
		cfg:      cfg,
		exchange: exchange,
		sup:      sup,
		checker: checks.New(checks.Options{
			Config:     cfg,
			Exchange:   exchange,
			Leadership: exchange,
			Supervisor: sup,
		}),
		deriver:  endpoint.NewEndpointDeriver(cfg.Workload, staticAddress("10.1.2.3")),
		recorder: record.NewFakeRecorder(32),
		metrics:  metrics.NewCollector(),
		unit:     &fakeUnit{model: "sdcore"},
	}
}

func (f *fixture) publishManager() *PublishManager {
	return NewPublishManager(PublishManagerOptions{
		Config:     f.cfg,
		Checker:    f.checker,
		Deriver:    f.deriver,
		Exchange:   f.exchange,
		Leadership: f.exchange,
		Supervisor: f.sup,
		Unit:       f.unit,
		Recorder:   f.recorder,
		Metrics:    f.metrics,
	})
}

func availableDatabases() dependency.Set {
	return dependency.NewSet(
		dependency.Dependency{
			Name: "common_database", Kind: dependency.KindResourceRelation, Presence: true, Availability: true,
			Payload: dbPayload("1.9.11.4:1234"),
		},
		dependency.Dependency{
			Name: "auth_database", Kind: dependency.KindResourceRelation, Presence: true, Availability: true,
			Payload: dbPayload("1.8.11.4:1234"),
		},
	)
}

func TestArtifactManager_BuildAll(t *testing.T) {
	f := newFixture()
	builder, err := artifacts.NewBuilder(f.cfg)
	require.NoError(t, err)
	am := NewArtifactManager(builder, f.sup, f.recorder, f.metrics)

	desired, err := am.BuildAll(availableDatabases())
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Workload.ConfigPath(), desired.Primary.Path)
	require.Len(t, desired.Peers, 2)
	assert.Equal(t, "[]", desired.Peers[0].Content)
	assert.Equal(t, "[]", desired.Peers[1].Content)

	_, err = am.BuildAll(dependency.NewSet())
	var precondition *artifacts.PreconditionError
	assert.ErrorAs(t, err, &precondition)
}

func TestArtifactManager_Persist(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	builder, err := artifacts.NewBuilder(f.cfg)
	require.NoError(t, err)
	am := NewArtifactManager(builder, f.sup, f.recorder, f.metrics)

	a := artifacts.Artifact{Path: "/etc/webui/upf_config.json", Content: `[{"hostname":"upf","port":"8805"}]`}

	written, err := am.Persist(ctx, subject, a)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 1, f.sup.Writes[a.Path])
	assert.Equal(t, "Normal ArtifactWritten Wrote /etc/webui/upf_config.json", <-f.recorder.Events)

	written, err = am.Persist(ctx, subject, a)
	require.NoError(t, err)
	assert.False(t, written)

	// semantically equal JSON is not rewritten
	f.sup.SetFile(a.Path, []byte("[ {\"port\": \"8805\", \"hostname\": \"upf\"} ]\n"))
	written, err = am.Persist(ctx, subject, a)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, 1, f.sup.Writes[a.Path])

	f.sup.SetReachable(false)
	_, err = am.Persist(ctx, subject, artifacts.Artifact{Path: "/etc/webui/webuicfg.conf", Content: "x"})
	assert.ErrorIs(t, err, supervisor.ErrUnreachable)
}

func TestPlanManager(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pm := NewPlanManager(f.sup, f.cfg.Workload, f.deriver, nil, f.recorder, f.metrics)

	layer := pm.DesiredLayer(ctx)
	assert.Equal(t, "10.1.2.3", layer.Services["webui"].Environment["SWAGGER_HOST"])

	applied, err := pm.EnsurePlan(ctx, subject)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = pm.EnsurePlan(ctx, subject)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, f.sup.Applies)

	require.NoError(t, pm.Restart(ctx, subject))
	assert.Equal(t, 1, f.sup.Restarts["webui"])

	noAddress := NewPlanManager(f.sup, f.cfg.Workload, endpoint.NewEndpointDeriver(f.cfg.Workload, nil), nil, f.recorder, f.metrics)
	_, ok := noAddress.DesiredLayer(ctx).Services["webui"].Environment["SWAGGER_HOST"]
	assert.False(t, ok)
}

func TestPlanManager_PendingRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	store := relation.NewMemoryObservedStore()
	pm := NewPlanManager(f.sup, f.cfg.Workload, f.deriver, store, f.recorder, f.metrics)
	_, err := pm.EnsurePlan(ctx, subject)
	require.NoError(t, err)

	assert.False(t, pm.RestartPending(ctx))
	require.NoError(t, pm.MarkRestartPending(ctx))

	// a second manager on the same store sees the owed restart
	other := NewPlanManager(f.sup, f.cfg.Workload, f.deriver, store, f.recorder, f.metrics)
	assert.True(t, other.RestartPending(ctx))

	f.sup.SetReachable(false)
	assert.Error(t, other.Restart(ctx, subject))
	assert.True(t, other.RestartPending(ctx))

	f.sup.SetReachable(true)
	require.NoError(t, other.Restart(ctx, subject))
	assert.False(t, pm.RestartPending(ctx))
}

func TestPublishManager_RequestDatabases(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pm := f.publishManager()

	require.NoError(t, pm.RequestDatabases(ctx))

	common := f.exchange.AddRelation("common_database", "mongodb")
	require.NoError(t, pm.RequestDatabases(ctx))

	local, err := f.exchange.LocalAppData(ctx, common)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"database": "free5gc", "extra-user-roles": "admin"}, local)

	auth := f.exchange.AddRelation("auth_database", "mongodb")
	require.NoError(t, pm.RequestDatabases(ctx))
	local, err = f.exchange.LocalAppData(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "authentication", local["database"])

	f.exchange.SetLeader(false)
	err = pm.RequestDatabases(ctx)
	assert.ErrorIs(t, err, relation.ErrNotAuthorized)
}

func TestPublishManager_RequestIngress(t *testing.T) {
	ctx := context.Background()

	t.Run("without a relation", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.publishManager().RequestIngress(ctx))
	})

	t.Run("routes to the http port", func(t *testing.T) {
		f := newFixture()
		rel := f.exchange.AddRelation("ingress", "traefik")
		require.NoError(t, f.publishManager().RequestIngress(ctx))

		local, err := f.exchange.LocalAppData(ctx, rel)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"model":        `"sdcore"`,
			"name":         `"webui"`,
			"port":         "5000",
			"strip-prefix": "true",
		}, local)
	})

	t.Run("uses the application name", func(t *testing.T) {
		f := newFixture()
		rel := f.exchange.AddRelation("ingress", "traefik")
		pm := NewPublishManager(PublishManagerOptions{
			Config:      f.cfg,
			Checker:     f.checker,
			Deriver:     f.deriver,
			Exchange:    f.exchange,
			Leadership:  f.exchange,
			Supervisor:  f.sup,
			Unit:        f.unit,
			Metrics:     f.metrics,
			Application: "sdcore-webui-k8s",
		})
		require.NoError(t, pm.RequestIngress(ctx))

		local, err := f.exchange.LocalAppData(ctx, rel)
		require.NoError(t, err)
		assert.Equal(t, `"sdcore-webui-k8s"`, local["name"])
	})

	t.Run("skipped while the model is unknown", func(t *testing.T) {
		f := newFixture()
		f.unit.model = ""
		rel := f.exchange.AddRelation("ingress", "traefik")
		require.NoError(t, f.publishManager().RequestIngress(ctx))

		local, err := f.exchange.LocalAppData(ctx, rel)
		require.NoError(t, err)
		assert.Empty(t, local)
	})

	t.Run("requires leadership", func(t *testing.T) {
		f := newFixture()
		f.exchange.AddRelation("ingress", "traefik")
		f.exchange.SetLeader(false)
		assert.ErrorIs(t, f.publishManager().RequestIngress(ctx), relation.ErrNotAuthorized)
	})
}

func TestPublishManager_PublishEndpoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pm := f.publishManager()

	configRel := f.exchange.AddRelation("sdcore-config", "nms")
	management := f.exchange.AddRelation("sdcore-management", "nms")

	require.NoError(t, pm.PublishEndpoints(ctx, subject))
	local, err := f.exchange.LocalAppData(ctx, configRel)
	require.NoError(t, err)
	assert.Empty(t, local, "nothing is published while the service is stopped")

	f.sup.SetRunning("webui", true)
	require.NoError(t, pm.PublishEndpoints(ctx, subject))

	local, err = f.exchange.LocalAppData(ctx, configRel)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"webui_url": "webui:9876"}, local)

	local, err = f.exchange.LocalAppData(ctx, management)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"management_url": "http://10.1.2.3:5000"}, local)

	f.exchange.SetLeader(false)
	err = pm.PublishEndpoints(ctx, subject)
	assert.True(t, relation.IsAuthorizationError(err))
}

func TestPublishManager_UnitTools(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pm := f.publishManager()

	require.NoError(t, pm.OpenPorts(ctx))
	assert.Equal(t, []int{9876, 5000}, f.unit.ports)

	require.NoError(t, pm.SetWorkloadVersion(ctx))
	assert.Empty(t, f.unit.version)

	f.sup.SetFile("/etc/workload-version", []byte("1.6.1\n"))
	require.NoError(t, pm.SetWorkloadVersion(ctx))
	assert.Equal(t, "1.6.1", f.unit.version)

	f.unit.err = errors.New("denied")
	assert.Error(t, pm.OpenPorts(ctx))
}

func TestStatusManager_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	setter := status.NewMemorySetter()
	sm := NewStatusManager(f.cfg, f.checker, setter, f.recorder, f.metrics)

	report, err := sm.Update(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, status.Blocked("Waiting for common_database relation to be created"), report.Status)
	assert.Equal(t, report.Status, setter.Current())
	assert.Equal(t, "Normal NotReady Waiting for common_database relation to be created", <-f.recorder.Events)

	_, err = sm.Update(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, f.recorder.Events, 0, "unchanged status emits no event")

	f.exchange.SetLeader(false)
	report, err = sm.Update(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, status.Blocked("Scaling is not implemented for this charm"), report.Status)
	assert.Len(t, setter.History(), 3)
}
