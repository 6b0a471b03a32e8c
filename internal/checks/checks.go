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

// Package checks provides the predicates that gate a reconciliation pass.
// Every predicate is read-only, issues at most a few local requests and
// reports failures to fetch state as "not available".
package checks

import (
	"context"

	ctrl "sigs.k8s.io/controller-runtime"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/dependency"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

// Checker evaluates the availability of every dependency of the workload.
type Checker struct {
	cfg        *config.OperatorConfig
	exchange   relation.Exchange
	leadership relation.Leadership
	supervisor supervisor.Supervisor
	storage    StorageView
	databases  map[string]*relation.Requirer[v0.DatabaseProviderData]
}

// Options holds the collaborators of a Checker
type Options struct {
	Config     *config.OperatorConfig
	Exchange   relation.Exchange
	Leadership relation.Leadership
	Supervisor supervisor.Supervisor

	// Storage defaults to a PathStorage mapping the configured storage to the
	// configuration directory
	Storage StorageView

	// Databases are the requirers of the database relations, keyed by
	// relation name. Missing entries are created.
	Databases map[string]*relation.Requirer[v0.DatabaseProviderData]
}

// New creates a Checker
func New(opts Options) *Checker {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultOperatorConfig()
	}

	storage := opts.Storage
	if storage == nil {
		storage = NewPathStorage(opts.Supervisor, map[string]string{
			cfg.Workload.StorageName: cfg.Workload.ConfigDir,
		})
	}

	databases := make(map[string]*relation.Requirer[v0.DatabaseProviderData], 2)
	for _, name := range cfg.Relations.RequiredDatabases() {
		if r, ok := opts.Databases[name]; ok {
			databases[name] = r
			continue
		}
		databases[name] = relation.NewRequirer[v0.DatabaseProviderData](opts.Exchange, name, nil)
	}

	return &Checker{
		cfg:        cfg,
		exchange:   opts.Exchange,
		leadership: opts.Leadership,
		supervisor: opts.Supervisor,
		storage:    storage,
		databases:  databases,
	}
}

// Config returns the configuration the checker was built with
func (c *Checker) Config() *config.OperatorConfig {
	return c.cfg
}

// IsLeader reports whether this unit holds write authority. A failure to
// determine leadership is treated as not leading.
func (c *Checker) IsLeader(ctx context.Context) bool {
	leader, err := c.leadership.IsLeader(ctx)
	if err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to determine leadership")
		return false
	}
	return leader
}

// RelationEstablished reports whether at least one relation of the named
// endpoint exists.
func (c *Checker) RelationEstablished(ctx context.Context, name string) bool {
	rels, err := c.exchange.Relations(ctx, name)
	if err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to list relations", "relation", name)
		return false
	}
	return len(rels) > 0
}

// ResourceProvisioned reports whether the database behind the named relation
// has been created and its credentials published.
func (c *Checker) ResourceProvisioned(ctx context.Context, name string) bool {
	_, ok := c.Database(ctx, name)
	return ok
}

// Database returns the validated credentials published on the named
// database relation.
func (c *Checker) Database(ctx context.Context, name string) (v0.DatabaseProviderData, bool) {
	r, ok := c.databases[name]
	if !ok {
		ctrl.LoggerFrom(ctx).Info("Unknown database relation", "relation", name)
		return v0.DatabaseProviderData{}, false
	}
	return r.Latest(ctx)
}

// RuntimeReachable reports whether the workload's supervisor answers
func (c *Checker) RuntimeReachable(ctx context.Context) bool {
	return c.supervisor.Reachable(ctx)
}

// DurableStorageAttached reports whether the configured storage is mounted
func (c *Checker) DurableStorageAttached(ctx context.Context) bool {
	attached, err := c.storage.Attached(ctx, c.cfg.Workload.StorageName)
	if err != nil {
		ctrl.LoggerFrom(ctx).V(1).Info("Failed to check storage", "storage", c.cfg.Workload.StorageName, "error", err.Error())
		return false
	}
	return attached
}

// ArtifactPersisted reports whether a file exists at path in the workload
func (c *Checker) ArtifactPersisted(ctx context.Context, path string) bool {
	exists, err := c.supervisor.FileExists(ctx, path)
	if err != nil {
		ctrl.LoggerFrom(ctx).V(1).Info("Failed to check file", "path", path, "error", err.Error())
		return false
	}
	return exists
}

// ServiceRunning reports whether the workload service is active
func (c *Checker) ServiceRunning(ctx context.Context) bool {
	if !c.supervisor.Reachable(ctx) {
		return false
	}
	running, err := c.supervisor.ServiceRunning(ctx, c.cfg.Workload.ServiceName)
	if err != nil {
		ctrl.LoggerFrom(ctx).V(1).Info("Failed to query service", "service", c.cfg.Workload.ServiceName, "error", err.Error())
		return false
	}
	return running
}

// Dependencies snapshots every dependency of the workload.
func (c *Checker) Dependencies(ctx context.Context) dependency.Set {
	set := dependency.NewSet()

	for _, name := range c.cfg.Relations.RequiredDatabases() {
		d := dependency.Dependency{
			Name:     name,
			Kind:     dependency.KindResourceRelation,
			Presence: c.RelationEstablished(ctx, name),
		}
		if d.Presence {
			if data, ok := c.Database(ctx, name); ok {
				d.Availability = true
				d.Payload = data
			}
		}
		set = set.With(d)
	}

	for _, name := range []string{c.cfg.Relations.FivegN4, c.cfg.Relations.GnbIdentity} {
		set = set.With(c.peerDependency(ctx, name))
	}

	reachable := c.RuntimeReachable(ctx)
	set = set.With(dependency.Dependency{
		Name:         c.cfg.Workload.ContainerName,
		Kind:         dependency.KindLocalRuntime,
		Presence:     reachable,
		Availability: reachable,
	})

	attached := reachable && c.DurableStorageAttached(ctx)
	set = set.With(dependency.Dependency{
		Name:         c.cfg.Workload.StorageName,
		Kind:         dependency.KindLocalRuntime,
		Presence:     attached,
		Availability: attached,
	})

	return set
}

// peerDependency collects the raw databags of every relation of a peer
// inventory endpoint. Validation is left to the consumer so that partially
// published peers can be skipped individually.
func (c *Checker) peerDependency(ctx context.Context, name string) dependency.Dependency {
	log := ctrl.LoggerFrom(ctx).WithValues("relation", name)
	d := dependency.Dependency{Name: name, Kind: dependency.KindPeerRelation}

	rels, err := c.exchange.Relations(ctx, name)
	if err != nil {
		log.Error(err, "Failed to list relations")
		return d
	}
	d.Presence = len(rels) > 0

	var bags dependency.Databags
	for _, rel := range rels {
		if rel.RemoteApp == "" {
			log.Info("Application missing from relation data", "relationID", rel.ID)
			continue
		}
		data, err := c.exchange.RemoteAppData(ctx, rel)
		if err != nil {
			log.Error(err, "Failed to read relation data", "relationID", rel.ID)
			continue
		}
		if len(data) > 0 {
			bags = append(bags, data)
		}
	}
	if len(bags) > 0 {
		d.Availability = true
		d.Payload = bags
	}
	return d
}
