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

// Package status projects the observable state of the webui workload onto a
// single unit status. The projection is pure: it reads through a View and
// never writes.
package status

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/cappyzawa/webui-operator/internal/conditions"
	"github.com/cappyzawa/webui-operator/internal/config"
)

// Kind is the category of a unit status
type Kind string

const (
	// KindActive means the workload is configured and running
	KindActive Kind = "active"
	// KindBlocked means operator intervention is needed
	KindBlocked Kind = "blocked"
	// KindWaiting means the unit is waiting on something outside its control
	KindWaiting Kind = "waiting"
)

// Status is the unit status shown to the operator.
type Status struct {
	Kind    Kind
	Message string
}

// Active returns the Active status, which carries no message.
func Active() Status {
	return Status{Kind: KindActive}
}

// Blocked returns a Blocked status with the given message.
func Blocked(message string) Status {
	return Status{Kind: KindBlocked, Message: message}
}

// Waiting returns a Waiting status with the given message.
func Waiting(message string) Status {
	return Status{Kind: KindWaiting, Message: message}
}

// String renders the status the way it is displayed
func (s Status) String() string {
	if s.Message == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.Message)
}

// View is the read-only view of the world the projection needs.
// *checks.Checker satisfies it.
type View interface {
	IsLeader(ctx context.Context) bool
	RelationEstablished(ctx context.Context, name string) bool
	ResourceProvisioned(ctx context.Context, name string) bool
	RuntimeReachable(ctx context.Context) bool
	DurableStorageAttached(ctx context.Context) bool
	ArtifactPersisted(ctx context.Context, path string) bool
	ServiceRunning(ctx context.Context) bool
}

// Setter pushes a status to the host.
type Setter interface {
	SetStatus(ctx context.Context, status Status) error
}

// Report is the result of a projection.
type Report struct {
	// Status is the single status selected by the first unmet gate
	Status Status

	// Conditions holds one condition per gate type plus Ready
	Conditions []metav1.Condition

	// Gate names the unmet gate, empty when Active
	Gate string
}

// Ready reports whether every gate passed
func (r Report) Ready() bool {
	return r.Status.Kind == KindActive
}

// Gate is one ordered readiness check.
type Gate struct {
	// Name identifies the gate in logs and metrics
	Name string
	// Condition is the condition type the gate contributes to
	Condition string
	// Reason is recorded on the condition when the gate fails
	Reason string
	// Status is reported when the gate fails
	Status Status
	// Check returns true when the gate is satisfied
	Check func(ctx context.Context) bool
}

// Gates returns the readiness gates in precedence order.
func Gates(p View, cfg *config.OperatorConfig) []Gate {
	r := cfg.Relations
	w := cfg.Workload

	gates := []Gate{{
		Name:      "leader",
		Condition: conditions.ConditionLeaderElected,
		Reason:    conditions.ReasonNotLeader,
		Status:    Blocked("Scaling is not implemented for this charm"),
		Check:     p.IsLeader,
	}}

	for _, rel := range r.RequiredDatabases() {
		gates = append(gates, Gate{
			Name:      "relation/" + rel,
			Condition: conditions.ConditionRelationsCreated,
			Reason:    conditions.ReasonRelationMissing,
			Status:    Blocked(fmt.Sprintf("Waiting for %s relation to be created", rel)),
			Check:     func(ctx context.Context) bool { return p.RelationEstablished(ctx, rel) },
		})
	}

	gates = append(gates,
		Gate{
			Name:      "database/" + r.CommonDatabase,
			Condition: conditions.ConditionDatabasesAvailable,
			Reason:    conditions.ReasonDatabasePending,
			Status:    Waiting("Waiting for the common database to be available"),
			Check:     func(ctx context.Context) bool { return p.ResourceProvisioned(ctx, r.CommonDatabase) },
		},
		Gate{
			Name:      "database/" + r.AuthDatabase,
			Condition: conditions.ConditionDatabasesAvailable,
			Reason:    conditions.ReasonDatabasePending,
			Status:    Waiting("Waiting for the auth database to be available"),
			Check:     func(ctx context.Context) bool { return p.ResourceProvisioned(ctx, r.AuthDatabase) },
		},
		Gate{
			Name:      "container",
			Condition: conditions.ConditionContainerReady,
			Reason:    conditions.ReasonContainerUnreachable,
			Status:    Waiting("Waiting for container to be ready"),
			Check:     p.RuntimeReachable,
		},
		Gate{
			Name:      "storage",
			Condition: conditions.ConditionStorageAttached,
			Reason:    conditions.ReasonStorageDetached,
			Status:    Waiting("Waiting for storage to be attached"),
			Check:     p.DurableStorageAttached,
		},
		artifactGate("webui", w.ConfigPath(), p),
		artifactGate("UPF", w.UPFConfigPath(), p),
		artifactGate("GNB", w.GNBConfigPath(), p),
		Gate{
			Name:      "service",
			Condition: conditions.ConditionServiceRunning,
			Reason:    conditions.ReasonServiceStopped,
			Status:    Waiting(fmt.Sprintf("Waiting for %s service to start", w.ServiceName)),
			Check:     p.ServiceRunning,
		},
	)

	return gates
}

func artifactGate(label, path string, p View) Gate {
	return Gate{
		Name:      "artifact/" + path,
		Condition: conditions.ConditionConfigStored,
		Reason:    conditions.ReasonArtifactMissing,
		Status:    Waiting(fmt.Sprintf("Waiting for %s config file to be stored", label)),
		Check:     func(ctx context.Context) bool { return p.ArtifactPersisted(ctx, path) },
	}
}

// Project evaluates the gates in order and stops at the first unmet one.
// Conditions of gates that were never evaluated are reported as Unknown.
func Project(ctx context.Context, p View, cfg *config.OperatorConfig) Report {
	var conds []metav1.Condition
	report := Report{Status: Active()}

	for _, gate := range Gates(p, cfg) {
		if gate.Check(ctx) {
			conditions.SetCondition(&conds, gate.Condition, metav1.ConditionTrue, conditions.ReasonSucceeded, "")
			continue
		}
		conditions.SetCondition(&conds, gate.Condition, metav1.ConditionFalse, gate.Reason, gate.Status.Message)
		report.Status = gate.Status
		report.Gate = gate.Name
		break
	}

	for _, conditionType := range conditions.GateConditions {
		if conditions.GetCondition(conds, conditionType) == nil {
			conditions.SetCondition(&conds, conditionType, metav1.ConditionUnknown,
				conditions.ReasonNotEvaluated, conditions.MessageNotEvaluated)
		}
	}

	readyStatus, readyReason, readyMessage := conditions.ComputeReadyCondition(conds)
	conditions.SetCondition(&conds, conditions.ConditionReady, readyStatus, readyReason, readyMessage)
	report.Conditions = conds

	return report
}
