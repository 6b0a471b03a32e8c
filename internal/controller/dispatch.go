package controller

import (
	"slices"

	"github.com/cappyzawa/webui-operator/internal/config"
)

// Action is what a trigger asks of a pass
type Action string

const (
	// ActionConverge runs the whole pipeline
	ActionConverge Action = "converge"
	// ActionObserve refreshes the relation requirers and converges only when
	// one of them saw new data
	ActionObserve Action = "observe"
	// ActionStatus only reports status
	ActionStatus Action = "status"
)

// Route maps a trigger to its action. Triggers not listed here only report
// status.
func Route(cfg *config.OperatorConfig, t Trigger) Action {
	r := cfg.Relations

	switch t.Kind {
	case TriggerUpdateStatus, TriggerConfigChanged, TriggerLeaderElected,
		TriggerDatabaseCreated, TriggerEndpointsChanged,
		TriggerFivegN4Available, TriggerGnbIdentityAvailable:
		return ActionConverge
	case TriggerPebbleReady:
		if t.Endpoint == "" || t.Endpoint == cfg.Workload.ContainerName {
			return ActionConverge
		}
	case TriggerStorageAttached:
		if t.Endpoint == "" || t.Endpoint == cfg.Workload.StorageName {
			return ActionConverge
		}
	case TriggerRelationJoined:
		if slices.Contains([]string{r.CommonDatabase, r.AuthDatabase, r.SdcoreConfig, r.SdcoreManagement, r.Ingress}, t.Endpoint) {
			return ActionConverge
		}
		return ActionObserve
	case TriggerRelationBroken:
		if slices.Contains([]string{r.FivegN4, r.GnbIdentity}, t.Endpoint) {
			return ActionConverge
		}
		return ActionObserve
	case TriggerRelationCreated, TriggerRelationChanged, TriggerRelationDeparted:
		return ActionObserve
	}
	return ActionStatus
}
