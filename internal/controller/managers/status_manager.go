package managers

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/status"
)

// StatusManager projects the unit status and reports it to the host
type StatusManager struct {
	cfg      *config.OperatorConfig
	view     status.View
	setter   status.Setter
	recorder record.EventRecorder
	metrics  *metrics.Collector

	last *status.Status
}

// NewStatusManager creates a new StatusManager instance
func NewStatusManager(cfg *config.OperatorConfig, view status.View, setter status.Setter, recorder record.EventRecorder, m *metrics.Collector) *StatusManager {
	return &StatusManager{
		cfg:      cfg,
		view:     view,
		setter:   setter,
		recorder: recorder,
		metrics:  m,
	}
}

// Project computes the current status without reporting it
func (sm *StatusManager) Project(ctx context.Context) status.Report {
	return status.Project(ctx, sm.view, sm.cfg)
}

// Update projects the status, reports it and emits an event when
// readiness changed since the last update.
func (sm *StatusManager) Update(ctx context.Context, subject runtime.Object) (status.Report, error) {
	log := ctrl.LoggerFrom(ctx)

	report := sm.Project(ctx)
	if err := sm.setter.SetStatus(ctx, report.Status); err != nil {
		log.Error(err, "Failed to set unit status")
		return report, fmt.Errorf("failed to set status: %w", err)
	}
	sm.metrics.SetReady(report.Ready())

	if sm.last == nil || *sm.last != report.Status {
		if report.Ready() {
			emit(sm.recorder, subject, EventTypeNormal, EventReasonReady, "Workload is ready and operational")
		} else {
			emit(sm.recorder, subject, EventTypeNormal, EventReasonNotReady, "%s", report.Status.Message)
		}
	}
	current := report.Status
	sm.last = &current

	if report.Ready() {
		log.V(1).Info("Workload is ready")
	} else {
		log.Info(report.Status.Message, "status", string(report.Status.Kind), "gate", report.Gate)
	}
	return report, nil
}
