package hookenv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/cappyzawa/webui-operator/internal/status"
)

const stateKeyPrefix = "observed."

// Load implements relation.ObservedStore on top of the unit's key/value state.
func (h *HookEnv) Load(ctx context.Context, key string) (map[string]string, error) {
	var raw string
	if err := h.runJSON(ctx, &raw, "state-get", "--format=json", stateKeyPrefix+key); err != nil {
		return nil, errors.Annotatef(err, "reading unit state %q", key)
	}

	digests := map[string]string{}
	if raw == "" {
		return digests, nil
	}
	if err := json.Unmarshal([]byte(raw), &digests); err != nil {
		return nil, errors.Annotatef(err, "decoding unit state %q", key)
	}
	return digests, nil
}

// Save implements relation.ObservedStore
func (h *HookEnv) Save(ctx context.Context, key string, digests map[string]string) error {
	encoded, err := json.Marshal(digests)
	if err != nil {
		return errors.Trace(err)
	}
	doc, err := yaml.Marshal(map[string]string{stateKeyPrefix + key: string(encoded)})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = h.runner.Run(ctx, doc, "state-set", "--file", "-")
	return errors.Annotatef(err, "writing unit state %q", key)
}

// PrivateAddress returns the unit's ingress address
func (h *HookEnv) PrivateAddress(ctx context.Context) (string, error) {
	out, err := h.runner.Run(ctx, nil, "unit-get", "private-address")
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SetStatus implements status.Setter
func (h *HookEnv) SetStatus(ctx context.Context, s status.Status) error {
	args := []string{string(s.Kind)}
	if s.Message != "" {
		args = append(args, s.Message)
	}
	_, err := h.runner.Run(ctx, nil, "status-set", args...)
	return errors.Annotatef(err, "setting status %q", s)
}

// SetWorkloadVersion publishes the workload version
func (h *HookEnv) SetWorkloadVersion(ctx context.Context, version string) error {
	_, err := h.runner.Run(ctx, nil, "application-version-set", version)
	return errors.Annotatef(err, "setting workload version %q", version)
}

// Model returns the name of the model the unit runs in. Outside of a hook
// the name is read from the environment juju-exec provides.
func (h *HookEnv) Model(ctx context.Context) (string, error) {
	if h.model != "" {
		return h.model, nil
	}
	out, err := h.runner.Run(ctx, nil, "printenv", ModelNameEnv)
	if err != nil {
		return "", errors.Annotate(err, "reading model name")
	}
	model := strings.TrimSpace(string(out))
	if model == "" {
		return "", errors.NotFoundf("%s", ModelNameEnv)
	}
	h.model = model
	return model, nil
}

// OpenPort opens a TCP port on the unit
func (h *HookEnv) OpenPort(ctx context.Context, port int) error {
	_, err := h.runner.Run(ctx, nil, "open-port", fmt.Sprintf("%d/tcp", port))
	return errors.Annotatef(err, "opening port %d", port)
}
