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

package controller

import (
	"errors"
	"path"
	"strings"
)

// TriggerKind names the event that started a pass
type TriggerKind string

// Trigger kinds
const (
	TriggerUpdateStatus         TriggerKind = "update-status"
	TriggerPebbleReady          TriggerKind = "pebble-ready"
	TriggerConfigChanged        TriggerKind = "config-changed"
	TriggerLeaderElected        TriggerKind = "leader-elected"
	TriggerRelationCreated      TriggerKind = "relation-created"
	TriggerRelationJoined       TriggerKind = "relation-joined"
	TriggerRelationChanged      TriggerKind = "relation-changed"
	TriggerRelationDeparted     TriggerKind = "relation-departed"
	TriggerRelationBroken       TriggerKind = "relation-broken"
	TriggerStorageAttached      TriggerKind = "storage-attached"
	TriggerStorageDetaching     TriggerKind = "storage-detaching"
	TriggerDatabaseCreated      TriggerKind = "database-created"
	TriggerEndpointsChanged     TriggerKind = "endpoints-changed"
	TriggerFivegN4Available     TriggerKind = "fiveg-n4-available"
	TriggerGnbIdentityAvailable TriggerKind = "gnb-identity-available"
)

// scoped kinds carry the endpoint, container or storage name as a prefix in
// the hook name
var scopedKinds = []TriggerKind{
	TriggerRelationCreated,
	TriggerRelationJoined,
	TriggerRelationChanged,
	TriggerRelationDeparted,
	TriggerRelationBroken,
	TriggerPebbleReady,
	TriggerStorageAttached,
	TriggerStorageDetaching,
}

// Trigger is one request for a pass. Triggers are comparable so the queue
// can coalesce duplicates.
type Trigger struct {
	Kind TriggerKind
	// Endpoint is the relation, container or storage the trigger is about
	Endpoint string
}

// String renders the trigger as the hook name it came from
func (t Trigger) String() string {
	if t.Endpoint == "" {
		return string(t.Kind)
	}
	return t.Endpoint + "-" + string(t.Kind)
}

// TriggerFromHook parses a dispatch path such as
// "hooks/common_database-relation-joined".
func TriggerFromHook(dispatchPath string) (Trigger, error) {
	name := path.Base(strings.TrimSpace(dispatchPath))
	if name == "" || name == "." || name == "/" {
		return Trigger{}, errors.New("empty dispatch path")
	}

	for _, kind := range scopedKinds {
		if endpoint, ok := strings.CutSuffix(name, "-"+string(kind)); ok && endpoint != "" {
			return Trigger{Kind: kind, Endpoint: endpoint}, nil
		}
	}
	return Trigger{Kind: TriggerKind(name)}, nil
}
