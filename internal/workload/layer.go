// Package workload describes the supervised webui service and its version.
package workload

import (
	"fmt"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

const (
	layerSummary     = "webui layer"
	layerDescription = "pebble config layer for webui"
	binary           = "/bin/webconsole"
)

// Layer returns the supervisor layer running the webui service. podIP is
// advertised as the swagger host and may be empty.
func Layer(w config.WorkloadConfig, podIP string) *supervisor.Layer {
	return &supervisor.Layer{
		Summary:     layerSummary,
		Description: layerDescription,
		Services: map[string]*supervisor.Service{
			w.ServiceName: {
				Override:    supervisor.OverrideReplace,
				Startup:     supervisor.StartupEnabled,
				Command:     fmt.Sprintf("%s --webuicfg %s", binary, w.ConfigPath()),
				Environment: Environment(w, podIP),
			},
		},
	}
}

// Environment returns the environment of the webui service
func Environment(w config.WorkloadConfig, podIP string) map[string]string {
	env := map[string]string{
		"GRPC_GO_LOG_VERBOSITY_LEVEL": "99",
		"GRPC_GO_LOG_SEVERITY_LEVEL":  "info",
		"GRPC_TRACE":                  "all",
		"GRPC_VERBOSITY":              "debug",
		"CONFIGPOD_DEPLOYMENT":        "5G",
		"UPF_CONFIG_PATH":             w.UPFConfigPath(),
		"GNB_CONFIG_PATH":             w.GNBConfigPath(),
	}
	if podIP != "" {
		env["SWAGGER_HOST"] = podIP
	}
	return env
}
