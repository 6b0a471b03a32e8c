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

// Package dependency models the external dependencies a reconciliation pass
// is evaluated against. A Set is an immutable snapshot taken at the start of a
// pass and handed explicitly to every pure function that needs it.
package dependency

import "fmt"

// Kind classifies a dependency by where its state comes from.
type Kind string

const (
	// KindPeerRelation is a relation to peer services publishing inventory
	KindPeerRelation Kind = "peer-relation"
	// KindResourceRelation is a relation whose provider provisions a resource
	KindResourceRelation Kind = "resource-relation"
	// KindLocalRuntime is state of the local workload runtime
	KindLocalRuntime Kind = "local-runtime-state"
)

// Dependency is one named member of a Set.
type Dependency struct {
	// Name identifies the dependency, usually the relation endpoint name
	Name string
	// Kind is the dependency classification
	Kind Kind
	// Presence is true once the relation or link is established
	Presence bool
	// Availability is true once usable, validated data has been provided
	Availability bool
	// Payload is the kind specific validated value, nil unless available
	Payload any
}

// normalize enforces availability implies presence and drops payloads of
// unavailable dependencies.
func (d Dependency) normalize() Dependency {
	if !d.Presence {
		d.Availability = false
	}
	if !d.Availability {
		d.Payload = nil
	}
	return d
}

// Set is an ordered snapshot of dependencies keyed by name.
type Set struct {
	order   []string
	members map[string]Dependency
}

// NewSet builds a Set. A later dependency with the same name replaces an
// earlier one but keeps its position.
func NewSet(deps ...Dependency) Set {
	s := Set{members: make(map[string]Dependency, len(deps))}
	for _, d := range deps {
		s = s.With(d)
	}
	return s
}

// With returns a copy of s containing d.
func (s Set) With(d Dependency) Set {
	out := Set{
		order:   append([]string(nil), s.order...),
		members: make(map[string]Dependency, len(s.members)+1),
	}
	for k, v := range s.members {
		out.members[k] = v
	}
	if _, ok := out.members[d.Name]; !ok {
		out.order = append(out.order, d.Name)
	}
	out.members[d.Name] = d.normalize()
	return out
}

// Get returns the named dependency.
func (s Set) Get(name string) (Dependency, bool) {
	d, ok := s.members[name]
	return d, ok
}

// Present reports whether the named dependency is established
func (s Set) Present(name string) bool {
	return s.members[name].Presence
}

// Available reports whether the named dependency has usable data
func (s Set) Available(name string) bool {
	return s.members[name].Availability
}

// Names returns the dependency names in insertion order.
func (s Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of dependencies in the set
func (s Set) Len() int {
	return len(s.order)
}

// PayloadOf returns the payload of the named dependency as T. It reports false
// when the dependency is unknown, unavailable or carries a different type.
func PayloadOf[T any](s Set, name string) (T, bool) {
	var zero T
	d, ok := s.members[name]
	if !ok || !d.Availability {
		return zero, false
	}
	v, ok := d.Payload.(T)
	return v, ok
}

// String summarizes the presence and availability of every member.
func (s Set) String() string {
	out := "{"
	for i, name := range s.order {
		if i > 0 {
			out += " "
		}
		d := s.members[name]
		out += fmt.Sprintf("%s(present=%t,available=%t)", name, d.Presence, d.Availability)
	}
	return out + "}"
}

// Databags are the raw remote application databags of a peer relation
// endpoint, one per relation, in relation order.
type Databags []map[string]string
