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

// Package relation implements the typed requirer and provider clients that
// read and write application databags through an Exchange.
package relation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized is returned when a non-leader unit tries to write
	// application relation data
	ErrNotAuthorized = errors.New("unit must be leader to set application relation data")

	// ErrNoRelation is returned when publishing to a relation that does not exist
	ErrNoRelation = errors.New("relation not created yet")
)

// IsAuthorizationError reports whether err signals a broken publish
// precondition: missing write authority or a missing relation.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrNoRelation)
}

// Relation identifies one established relation instance.
type Relation struct {
	// ID is the relation id assigned by the model
	ID int
	// Name is the endpoint name in this application's metadata
	Name string
	// RemoteApp is the name of the related application, empty until known
	RemoteApp string
}

// String returns the relation key in the model's "name:id" form.
func (r Relation) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.ID)
}

// Exchange is the shared, eventually consistent key/value store holding the
// application databags of every relation.
type Exchange interface {
	// Relations lists the established relations of an endpoint, ordered by id
	Relations(ctx context.Context, name string) ([]Relation, error)

	// RemoteAppData returns the remote application's databag. A relation
	// whose remote side has not written anything yields an empty map.
	RemoteAppData(ctx context.Context, rel Relation) (map[string]string, error)

	// LocalAppData returns this application's databag
	LocalAppData(ctx context.Context, rel Relation) (map[string]string, error)

	// SetLocalAppData merges data into this application's databag
	SetLocalAppData(ctx context.Context, rel Relation, data map[string]string) error
}

// Leadership reports whether this unit holds write authority over the
// application databags.
type Leadership interface {
	IsLeader(ctx context.Context) (bool, error)
}
