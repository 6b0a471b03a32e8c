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

package relation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/schema"
)

// Entry is a validated payload read from one relation.
type Entry[T any] struct {
	Relation Relation
	Data     T
}

// AvailableFunc is notified when a relation carries a valid payload that has
// not been announced before.
type AvailableFunc[T any] func(ctx context.Context, rel Relation, data T)

// Requirer reads the remote application databags of one endpoint and decodes
// them into T.
type Requirer[T any] struct {
	name     string
	exchange Exchange
	observed ObservedStore
	handlers []AvailableFunc[T]
}

// NewRequirer creates a Requirer for endpoint name. A nil store keeps
// announcement state in memory.
func NewRequirer[T any](exchange Exchange, name string, observed ObservedStore) *Requirer[T] {
	if observed == nil {
		observed = NewMemoryObservedStore()
	}
	return &Requirer[T]{
		name:     name,
		exchange: exchange,
		observed: observed,
	}
}

// Name returns the endpoint name
func (r *Requirer[T]) Name() string {
	return r.name
}

// OnAvailable registers fn to be called by Observe.
func (r *Requirer[T]) OnAvailable(fn AvailableFunc[T]) {
	r.handlers = append(r.handlers, fn)
}

// Relations lists the established relations of the endpoint. Errors are
// logged and reported as no relations.
func (r *Requirer[T]) Relations(ctx context.Context) []Relation {
	rels, err := r.exchange.Relations(ctx, r.name)
	if err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to list relations", "relation", r.name)
		return nil
	}
	return rels
}

// Latest returns the payload of the endpoint's single relation. It reports
// false when there is no relation, more than one relation, or the databag does
// not validate.
func (r *Requirer[T]) Latest(ctx context.Context) (T, bool) {
	var zero T
	log := ctrl.LoggerFrom(ctx).WithValues("relation", r.name)

	rels := r.Relations(ctx)
	switch len(rels) {
	case 0:
		log.V(1).Info("No relation")
		return zero, false
	case 1:
	default:
		log.Info("Expected a single relation", "count", len(rels))
		return zero, false
	}
	return r.Get(ctx, rels[0])
}

// Get returns the validated payload of rel.
func (r *Requirer[T]) Get(ctx context.Context, rel Relation) (T, bool) {
	var zero T
	log := ctrl.LoggerFrom(ctx).WithValues("relation", rel.String())

	if rel.RemoteApp == "" {
		log.Info("No remote application in relation")
		return zero, false
	}

	raw, err := r.exchange.RemoteAppData(ctx, rel)
	if err != nil {
		log.Error(err, "Failed to read remote application data")
		return zero, false
	}
	if len(raw) == 0 {
		log.V(1).Info("Remote application data is empty")
		return zero, false
	}

	data, err := schema.Validate[T](raw)
	if err != nil {
		log.Error(err, "Invalid relation data")
		return zero, false
	}
	return data, true
}

// All returns one entry per relation carrying a valid payload, in relation
// order. Relations with missing or invalid data are skipped.
func (r *Requirer[T]) All(ctx context.Context) []Entry[T] {
	rels := r.Relations(ctx)
	entries := make([]Entry[T], 0, len(rels))
	for _, rel := range rels {
		if data, ok := r.Get(ctx, rel); ok {
			entries = append(entries, Entry[T]{Relation: rel, Data: data})
		}
	}
	return entries
}

// Observe announces every valid payload that differs from the one last
// announced for the same relation and forgets relations that were torn down.
// It returns the number of announcements made.
func (r *Requirer[T]) Observe(ctx context.Context) (int, error) {
	log := ctrl.LoggerFrom(ctx).WithValues("relation", r.name)

	seen, err := r.observed.Load(ctx, r.name)
	if err != nil {
		return 0, fmt.Errorf("failed to load observed payloads for %s: %w", r.name, err)
	}

	current := make(map[string]string)
	var fresh []Entry[T]
	for _, entry := range r.All(ctx) {
		key := strconv.Itoa(entry.Relation.ID)
		d, err := digest(entry.Data)
		if err != nil {
			log.Error(err, "Failed to digest payload", "relationID", entry.Relation.ID)
			continue
		}
		current[key] = d
		if seen[key] != d {
			fresh = append(fresh, entry)
		}
	}

	if len(fresh) == 0 && len(current) == len(seen) {
		return 0, nil
	}
	if err := r.observed.Save(ctx, r.name, current); err != nil {
		return 0, fmt.Errorf("failed to save observed payloads for %s: %w", r.name, err)
	}

	for _, entry := range fresh {
		log.V(1).Info("Relation data available", "relationID", entry.Relation.ID)
		for _, fn := range r.handlers {
			fn(ctx, entry.Relation, entry.Data)
		}
	}
	return len(fresh), nil
}

func digest[T any](data T) (string, error) {
	raw, err := schema.Encode(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(schema.Canonical(raw)))
	return hex.EncodeToString(sum[:]), nil
}
