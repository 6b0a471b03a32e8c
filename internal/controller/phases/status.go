package phases

import (
	"context"
)

// VersionPhase reports the workload version. It runs on every pass of the
// leader once the container answers.
type VersionPhase struct{}

// Name returns the name of the version phase
func (p *VersionPhase) Name() string {
	return "Version"
}

// Execute reports the version
func (p *VersionPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	if err := phaseCtx.PublishManager.SetWorkloadVersion(ctx); err != nil {
		// not worth failing the pass over
		phaseCtx.Logger.Error(err, "Failed to set workload version", "phase", p.Name())
	}
	return PhaseResult{}
}

// ShouldSkip skips non-leaders and unreachable containers
func (p *VersionPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return !phaseCtx.Checker.IsLeader(ctx) || !phaseCtx.Checker.RuntimeReachable(ctx)
}

// StatusPhase projects and reports the unit status. It always runs.
type StatusPhase struct{}

// Name returns the name of the status phase
func (p *StatusPhase) Name() string {
	return "Status"
}

// Execute performs final status computation and update
func (p *StatusPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	log := phaseCtx.Logger.WithValues("phase", p.Name())
	log.V(1).Info("Starting status phase")

	report, err := phaseCtx.StatusManager.Update(ctx, phaseCtx.Subject)
	phaseCtx.Report = report
	if err != nil {
		return PhaseResult{Error: Classify("StatusError", "failed to report status", err)}
	}

	log.V(1).Info("Status phase completed successfully", "status", report.Status.String())
	return PhaseResult{}
}

// ShouldSkip determines if status phase should be skipped
func (p *StatusPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}
