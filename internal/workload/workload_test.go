package workload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

func TestLayer(t *testing.T) {
	w := config.DefaultOperatorConfig().Workload
	layer := Layer(w, "10.1.2.3")

	assert.Equal(t, "webui layer", layer.Summary)
	assert.Equal(t, "pebble config layer for webui", layer.Description)
	require.Contains(t, layer.Services, "webui")

	svc := layer.Services["webui"]
	assert.Equal(t, supervisor.OverrideReplace, svc.Override)
	assert.Equal(t, supervisor.StartupEnabled, svc.Startup)
	assert.Equal(t, "/bin/webconsole --webuicfg /etc/webui/webuicfg.conf", svc.Command)
	assert.Equal(t, map[string]string{
		"GRPC_GO_LOG_VERBOSITY_LEVEL": "99",
		"GRPC_GO_LOG_SEVERITY_LEVEL":  "info",
		"GRPC_TRACE":                  "all",
		"GRPC_VERBOSITY":              "debug",
		"CONFIGPOD_DEPLOYMENT":        "5G",
		"SWAGGER_HOST":                "10.1.2.3",
		"UPF_CONFIG_PATH":             "/etc/webui/upf_config.json",
		"GNB_CONFIG_PATH":             "/etc/webui/gnb_config.json",
	}, svc.Environment)

	assert.NotContains(t, Layer(w, "").Services["webui"].Environment, "SWAGGER_HOST")
}

func TestLayer_MatchesPlanAfterApply(t *testing.T) {
	ctx := context.Background()
	sup := supervisor.NewFakeSupervisor()
	layer := Layer(config.DefaultOperatorConfig().Workload, "10.1.2.3")

	plan, err := sup.CurrentPlan(ctx)
	require.NoError(t, err)
	assert.False(t, plan.ServicesEqual(layer))

	require.NoError(t, sup.ApplyPlan(ctx, "webui", layer))
	plan, err = sup.CurrentPlan(ctx)
	require.NoError(t, err)
	assert.True(t, plan.ServicesEqual(layer))
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	sup := supervisor.NewFakeSupervisor()

	assert.Empty(t, Version(ctx, sup, "/etc/workload-version"))

	sup.SetFile("/etc/workload-version", []byte("1.6.1\n"))
	assert.Equal(t, "1.6.1", Version(ctx, sup, "/etc/workload-version"))

	sup.SetFile("/etc/workload-version", []byte("v1.6.1"))
	assert.Equal(t, "1.6.1", Version(ctx, sup, "/etc/workload-version"))

	sup.SetFile("/etc/workload-version", []byte("1.6"))
	assert.Equal(t, "1.6.0", Version(ctx, sup, "/etc/workload-version"))

	sup.SetFile("/etc/workload-version", []byte("main-abc123"))
	assert.Equal(t, "main-abc123", Version(ctx, sup, "/etc/workload-version"))

	sup.SetReachable(false)
	assert.Empty(t, Version(ctx, sup, "/etc/workload-version"))
}
