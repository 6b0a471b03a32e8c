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

// Package hookenv adapts the Juju hook tools to the interfaces the operator
// consumes: the relation exchange, leadership, unit state, addresses and
// unit status.
package hookenv

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/status"
)

// Environment variables set by the agent for every hook
const (
	UnitNameEnv     = "JUJU_UNIT_NAME"
	DispatchPathEnv = "JUJU_DISPATCH_PATH"
	RelationIDEnv   = "JUJU_RELATION_ID"
	ModelNameEnv    = "JUJU_MODEL_NAME"
)

const brokenSuffix = "-relation-broken"

// HookEnv talks to the unit agent through its hook tools.
type HookEnv struct {
	runner Runner
	unit   names.UnitTag
	model  string

	// departing is the key of the relation being torn down by the current
	// hook. relation-ids still lists it during relation-broken.
	departing string
}

var (
	_ relation.Exchange      = (*HookEnv)(nil)
	_ relation.Leadership    = (*HookEnv)(nil)
	_ relation.ObservedStore = (*HookEnv)(nil)
	_ status.Setter          = (*HookEnv)(nil)
)

// New returns a HookEnv acting as unitName.
func New(runner Runner, unitName string) (*HookEnv, error) {
	if !names.IsValidUnit(unitName) {
		return nil, errors.NotValidf("unit name %q", unitName)
	}
	return &HookEnv{runner: runner, unit: names.NewUnitTag(unitName)}, nil
}

// FromEnvironment returns a HookEnv for the unit named by JUJU_UNIT_NAME.
// In a relation-broken hook the broken relation is excluded from Relations.
func FromEnvironment(runner Runner) (*HookEnv, error) {
	unitName := os.Getenv(UnitNameEnv)
	if unitName == "" {
		return nil, errors.NotFoundf("%s", UnitNameEnv)
	}
	h, err := New(runner, unitName)
	if err != nil {
		return nil, err
	}
	h.model = os.Getenv(ModelNameEnv)

	hook := path.Base(os.Getenv(DispatchPathEnv))
	if key := os.Getenv(RelationIDEnv); strings.HasSuffix(hook, brokenSuffix) && key != "" {
		if err := h.ExcludeRelation(key); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ExcludeRelation hides the relation with the given "name:id" key from
// Relations for the rest of the hook.
func (h *HookEnv) ExcludeRelation(key string) error {
	if _, err := parseRelationID(key); err != nil {
		return errors.Trace(err)
	}
	h.departing = key
	return nil
}

// Unit returns the unit tag
func (h *HookEnv) Unit() names.UnitTag {
	return h.unit
}

// Application returns the name of the unit's application
func (h *HookEnv) Application() string {
	app, _ := names.UnitApplication(h.unit.Id())
	return app
}

// IsLeader implements relation.Leadership
func (h *HookEnv) IsLeader(ctx context.Context) (bool, error) {
	var leader bool
	if err := h.runJSON(ctx, &leader, "is-leader", "--format=json"); err != nil {
		return false, errors.Trace(err)
	}
	return leader, nil
}

// Relations implements relation.Exchange. Relations whose remote
// application is not known yet are returned with an empty RemoteApp. The
// departing relation of a relation-broken hook is left out.
func (h *HookEnv) Relations(ctx context.Context, name string) ([]relation.Relation, error) {
	var ids []string
	if err := h.runJSON(ctx, &ids, "relation-ids", name, "--format=json"); err != nil {
		return nil, errors.Annotatef(err, "listing %s relations", name)
	}

	rels := make([]relation.Relation, 0, len(ids))
	for _, key := range ids {
		if key == h.departing {
			continue
		}
		id, err := parseRelationID(key)
		if err != nil {
			return nil, errors.Trace(err)
		}

		var app string
		if err := h.runJSON(ctx, &app, "relation-list", "-r", key, "--app", "--format=json"); err != nil {
			return nil, errors.Annotatef(err, "reading remote application of %s", key)
		}
		if app != "" && !names.IsValidApplication(app) {
			ctrl.LoggerFrom(ctx).Info("Ignoring invalid remote application name", "relation", key, "app", app)
			app = ""
		}
		rels = append(rels, relation.Relation{ID: id, Name: name, RemoteApp: app})
	}
	return rels, nil
}

// RemoteAppData implements relation.Exchange
func (h *HookEnv) RemoteAppData(ctx context.Context, rel relation.Relation) (map[string]string, error) {
	if rel.RemoteApp == "" {
		return map[string]string{}, nil
	}
	return h.appData(ctx, rel, rel.RemoteApp)
}

// LocalAppData implements relation.Exchange
func (h *HookEnv) LocalAppData(ctx context.Context, rel relation.Relation) (map[string]string, error) {
	return h.appData(ctx, rel, h.Application())
}

// SetLocalAppData implements relation.Exchange
func (h *HookEnv) SetLocalAppData(ctx context.Context, rel relation.Relation, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = h.runner.Run(ctx, payload, "relation-set", "-r", rel.String(), "--app", "--file", "-")
	return errors.Annotatef(err, "writing %s application data", rel)
}

func (h *HookEnv) appData(ctx context.Context, rel relation.Relation, app string) (map[string]string, error) {
	data := map[string]string{}
	if err := h.runJSON(ctx, &data, "relation-get", "-r", rel.String(), "--app", "--format=json", "-", app); err != nil {
		return nil, errors.Annotatef(err, "reading %s application data of %s", rel, app)
	}
	return data, nil
}

func (h *HookEnv) runJSON(ctx context.Context, out any, tool string, args ...string) error {
	raw, err := h.runner.Run(ctx, nil, tool, args...)
	if err != nil {
		return err
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Annotatef(err, "decoding %s output", tool)
	}
	return nil
}

// parseRelationID extracts the id from a "name:id" relation key.
func parseRelationID(key string) (int, error) {
	_, idStr, ok := strings.Cut(key, ":")
	if !ok {
		return 0, errors.NotValidf("relation key %q", key)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.NotValidf("relation key %q", key)
	}
	return id, nil
}
