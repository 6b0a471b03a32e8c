package hookenv

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/status"
)

type call struct {
	stdin string
	argv  string
}

type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []call
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, tool string, args ...string) ([]byte, error) {
	argv := strings.Join(append([]string{tool}, args...), " ")
	f.calls = append(f.calls, call{stdin: string(stdin), argv: argv})
	if err, ok := f.errs[argv]; ok {
		return nil, err
	}
	return []byte(f.outputs[argv]), nil
}

func (f *fakeRunner) last() call {
	return f.calls[len(f.calls)-1]
}

func newHookEnv(t *testing.T, r Runner) *HookEnv {
	t.Helper()
	h, err := New(r, "webui/0")
	require.NoError(t, err)
	return h
}

func TestNew(t *testing.T) {
	_, err := New(newFakeRunner(), "not a unit")
	assert.Error(t, err)

	h := newHookEnv(t, newFakeRunner())
	assert.Equal(t, "unit-webui-0", h.Unit().String())
	assert.Equal(t, "webui", h.Application())
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv(UnitNameEnv, "")
	_, err := FromEnvironment(newFakeRunner())
	assert.Error(t, err)

	t.Setenv(UnitNameEnv, "webui/3")
	h, err := FromEnvironment(newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "webui/3", h.Unit().Id())
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("from the hook environment", func(t *testing.T) {
		r := newFakeRunner()
		t.Setenv(UnitNameEnv, "webui/0")
		t.Setenv(ModelNameEnv, "sdcore")

		h, err := FromEnvironment(r)
		require.NoError(t, err)
		model, err := h.Model(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sdcore", model)
		assert.Empty(t, r.calls)
	})

	t.Run("through the runner", func(t *testing.T) {
		r := newFakeRunner()
		r.outputs["printenv JUJU_MODEL_NAME"] = "sdcore\n"
		h, err := New(r, "webui/0")
		require.NoError(t, err)

		model, err := h.Model(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sdcore", model)

		_, err = h.Model(ctx)
		require.NoError(t, err)
		assert.Len(t, r.calls, 1, "the model name is read once")
	})

	t.Run("unset", func(t *testing.T) {
		h, err := New(newFakeRunner(), "webui/0")
		require.NoError(t, err)
		_, err = h.Model(ctx)
		assert.Error(t, err)
	})
}

func TestFromEnvironmentRelationBroken(t *testing.T) {
	ctx := context.Background()
	r := newFakeRunner()
	r.outputs["relation-ids fiveg_n4 --format=json"] = `["fiveg_n4:4","fiveg_n4:7"]`
	r.outputs["relation-list -r fiveg_n4:4 --app --format=json"] = `"upf-a"`
	r.outputs["relation-list -r fiveg_n4:7 --app --format=json"] = `"upf-b"`

	t.Setenv(UnitNameEnv, "webui/0")
	t.Setenv(DispatchPathEnv, "hooks/fiveg_n4-relation-broken")
	t.Setenv(RelationIDEnv, "fiveg_n4:7")

	h, err := FromEnvironment(r)
	require.NoError(t, err)
	rels, err := h.Relations(ctx, "fiveg_n4")
	require.NoError(t, err)
	assert.Equal(t, []relation.Relation{{ID: 4, Name: "fiveg_n4", RemoteApp: "upf-a"}}, rels)

	t.Setenv(DispatchPathEnv, "hooks/fiveg_n4-relation-changed")
	h, err = FromEnvironment(r)
	require.NoError(t, err)
	rels, err = h.Relations(ctx, "fiveg_n4")
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	t.Setenv(DispatchPathEnv, "hooks/fiveg_n4-relation-broken")
	t.Setenv(RelationIDEnv, "garbage")
	_, err = FromEnvironment(r)
	assert.Error(t, err)
}

func TestExcludeRelation(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)
	r.outputs["relation-ids fiveg_gnb_identity --format=json"] = `["fiveg_gnb_identity:2"]`

	require.NoError(t, h.ExcludeRelation("fiveg_gnb_identity:2"))
	rels, err := h.Relations(context.Background(), "fiveg_gnb_identity")
	require.NoError(t, err)
	assert.Empty(t, rels)

	assert.Error(t, h.ExcludeRelation("fiveg_gnb_identity"))
}

func TestIsLeader(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)

	r.outputs["is-leader --format=json"] = "true\n"
	leader, err := h.IsLeader(context.Background())
	require.NoError(t, err)
	assert.True(t, leader)

	r.errs["is-leader --format=json"] = errors.New("boom")
	_, err = h.IsLeader(context.Background())
	assert.Error(t, err)
}

func TestRelations(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)
	ctx := context.Background()

	r.outputs["relation-ids fiveg_n4 --format=json"] = `["fiveg_n4:4","fiveg_n4:7"]`
	r.outputs["relation-list -r fiveg_n4:4 --app --format=json"] = `"upf"`
	r.outputs["relation-list -r fiveg_n4:7 --app --format=json"] = ``

	rels, err := h.Relations(ctx, "fiveg_n4")
	require.NoError(t, err)
	assert.Equal(t, []relation.Relation{
		{ID: 4, Name: "fiveg_n4", RemoteApp: "upf"},
		{ID: 7, Name: "fiveg_n4"},
	}, rels)

	r.outputs["relation-ids broken --format=json"] = `["broken"]`
	_, err = h.Relations(ctx, "broken")
	assert.Error(t, err)
}

func TestAppData(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)
	ctx := context.Background()
	rel := relation.Relation{ID: 3, Name: "common_database", RemoteApp: "mongodb"}

	r.outputs["relation-get -r common_database:3 --app --format=json - mongodb"] = `{"username":"u","password":"p","uris":"1.2.3.4:1234"}`
	data, err := h.RemoteAppData(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "u", "password": "p", "uris": "1.2.3.4:1234"}, data)

	data, err = h.RemoteAppData(ctx, relation.Relation{ID: 3, Name: "common_database"})
	require.NoError(t, err)
	assert.Empty(t, data)

	r.outputs["relation-get -r common_database:3 --app --format=json - webui"] = `{"database":"free5gc"}`
	data, err = h.LocalAppData(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"database": "free5gc"}, data)

	require.NoError(t, h.SetLocalAppData(ctx, rel, map[string]string{"database": "free5gc"}))
	assert.Equal(t, call{
		stdin: `{"database":"free5gc"}`,
		argv:  "relation-set -r common_database:3 --app --file -",
	}, r.last())
}

func TestObservedState(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)
	ctx := context.Background()

	digests, err := h.Load(ctx, "fiveg_n4")
	require.NoError(t, err)
	assert.Empty(t, digests)

	require.NoError(t, h.Save(ctx, "fiveg_n4", map[string]string{"4": "abc"}))
	saved := r.last()
	assert.Equal(t, "state-set --file -", saved.argv)
	assert.Contains(t, saved.stdin, "observed.fiveg_n4")

	r.outputs["state-get --format=json observed.fiveg_n4"] = `"{\"4\":\"abc\"}"`
	digests, err = h.Load(ctx, "fiveg_n4")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"4": "abc"}, digests)
}

func TestUnitTools(t *testing.T) {
	r := newFakeRunner()
	h := newHookEnv(t, r)
	ctx := context.Background()

	r.outputs["unit-get private-address"] = "10.1.2.3\n"
	addr, err := h.PrivateAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", addr)

	require.NoError(t, h.SetStatus(ctx, status.Waiting("Waiting for container to be ready")))
	assert.Equal(t, "status-set waiting Waiting for container to be ready", r.last().argv)

	require.NoError(t, h.SetStatus(ctx, status.Active()))
	assert.Equal(t, "status-set active", r.last().argv)

	require.NoError(t, h.SetWorkloadVersion(ctx, "1.4.0"))
	assert.Equal(t, "application-version-set 1.4.0", r.last().argv)

	require.NoError(t, h.OpenPort(ctx, 9876))
	assert.Equal(t, "open-port 9876/tcp", r.last().argv)

	r.errs["open-port 5000/tcp"] = errors.New("denied")
	assert.Error(t, h.OpenPort(ctx, 5000))
}
