package phases

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"

	"github.com/cappyzawa/webui-operator/internal/checks"
	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/controller/managers"
	"github.com/cappyzawa/webui-operator/internal/dependency"
	"github.com/cappyzawa/webui-operator/internal/status"
)

// PhaseResult represents the result of a phase execution
type PhaseResult struct {
	// Skip indicates whether to skip remaining phases
	Skip bool
	// Requeue indicates whether to requeue the reconciliation
	Requeue bool
	// RequeueAfter indicates when to requeue the reconciliation
	RequeueAfter time.Duration
	// Error is the error that occurred during phase execution
	Error error
}

// PhaseContext contains shared context and data between phases
type PhaseContext struct {
	// Trigger names what started the pass
	Trigger string
	// Config is the operator configuration
	Config *config.OperatorConfig
	// Logger is the controller logger
	Logger logr.Logger
	// Recorder is the event recorder
	Recorder record.EventRecorder
	// Subject is the object events are recorded against
	Subject runtime.Object
	// Checker evaluates the gates
	Checker *checks.Checker
	// Managers provide domain-specific operations
	ArtifactManager *managers.ArtifactManager
	PlanManager     *managers.PlanManager
	PublishManager  *managers.PublishManager
	StatusManager   *managers.StatusManager

	// Phase-specific data
	Leader          bool
	Dependencies    dependency.Set
	Desired         managers.DesiredArtifacts
	RestartRequired bool
	Report          status.Report
}

// Phase represents a single phase in the reconciliation pipeline
type Phase interface {
	// Name returns the name of the phase for logging
	Name() string
	// Execute runs the phase logic
	Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult
	// ShouldSkip determines if this phase should be skipped based on context
	ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool
}
