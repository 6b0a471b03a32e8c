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

package managers

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/endpoint"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
	"github.com/cappyzawa/webui-operator/internal/workload"
)

// restartStateKey names the unit state entry holding a pending restart
const restartStateKey = "restart"

// PlanManager keeps the supervisor plan of the workload in line with the
// desired layer and restarts the service on request. A restart owed for a
// written configuration is kept in the store until it succeeds.
type PlanManager struct {
	supervisor supervisor.Supervisor
	workload   config.WorkloadConfig
	deriver    *endpoint.EndpointDeriver
	store      relation.ObservedStore
	recorder   record.EventRecorder
	metrics    *metrics.Collector
}

// NewPlanManager creates a new PlanManager instance. A nil store keeps
// pending restarts in memory.
func NewPlanManager(sup supervisor.Supervisor, w config.WorkloadConfig, deriver *endpoint.EndpointDeriver, store relation.ObservedStore, recorder record.EventRecorder, m *metrics.Collector) *PlanManager {
	if store == nil {
		store = relation.NewMemoryObservedStore()
	}
	return &PlanManager{
		supervisor: sup,
		workload:   w,
		deriver:    deriver,
		store:      store,
		recorder:   recorder,
		metrics:    m,
	}
}

// MarkRestartPending records that the service must be restarted
func (pm *PlanManager) MarkRestartPending(ctx context.Context) error {
	if err := pm.store.Save(ctx, restartStateKey, map[string]string{pm.workload.ServiceName: "pending"}); err != nil {
		return fmt.Errorf("failed to record pending restart: %w", err)
	}
	return nil
}

// RestartPending reports whether a recorded restart has not happened yet
func (pm *PlanManager) RestartPending(ctx context.Context) bool {
	state, err := pm.store.Load(ctx, restartStateKey)
	if err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to read pending restart")
		return false
	}
	return state[pm.workload.ServiceName] != ""
}

// DesiredLayer returns the layer the workload should run. A missing pod
// address leaves the swagger host out.
func (pm *PlanManager) DesiredLayer(ctx context.Context) *supervisor.Layer {
	podIP, err := pm.deriver.PodIP(ctx)
	if err != nil {
		ctrl.LoggerFrom(ctx).V(1).Info("Pod address unavailable", "error", err.Error())
		podIP = ""
	}
	return workload.Layer(pm.workload, podIP)
}

// EnsurePlan applies the desired layer when the current plan's services
// differ from it, and reports whether it did.
func (pm *PlanManager) EnsurePlan(ctx context.Context, subject runtime.Object) (bool, error) {
	log := ctrl.LoggerFrom(ctx)

	plan, err := pm.supervisor.CurrentPlan(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read plan: %w", err)
	}

	layer := pm.DesiredLayer(ctx)
	if plan.ServicesEqual(layer) {
		log.V(1).Info("Plan is up to date")
		return false, nil
	}

	if err := pm.supervisor.ApplyPlan(ctx, pm.workload.ContainerName, layer); err != nil {
		emit(pm.recorder, subject, EventTypeWarning, EventReasonPlanError, "Failed to apply plan: %v", err)
		return false, fmt.Errorf("failed to apply plan: %w", err)
	}

	emit(pm.recorder, subject, EventTypeNormal, EventReasonPlanApplied, "Applied %s layer", pm.workload.ContainerName)
	log.Info("Applied workload plan")
	return true, nil
}

// Restart restarts the workload service
func (pm *PlanManager) Restart(ctx context.Context, subject runtime.Object) error {
	if err := pm.supervisor.RestartService(ctx, pm.workload.ServiceName); err != nil {
		return fmt.Errorf("failed to restart %s: %w", pm.workload.ServiceName, err)
	}

	if err := pm.store.Save(ctx, restartStateKey, map[string]string{}); err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to clear pending restart")
	}

	pm.metrics.ServiceRestarted()
	emit(pm.recorder, subject, EventTypeNormal, EventReasonRestarted, "Restarted %s", pm.workload.ServiceName)
	ctrl.LoggerFrom(ctx).Info("Restarted service", "service", pm.workload.ServiceName)
	return nil
}
