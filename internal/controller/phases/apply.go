package phases

import (
	"context"
)

// ArtifactsPhase builds every artifact and persists the ones that changed.
// Peer inventories are written first and independently of each other; a
// failed one is retried on the next pass without holding back the primary
// configuration. Only a change of the primary configuration requires a
// restart, and the restart stays owed until WorkloadPhase performs it.
type ArtifactsPhase struct{}

// Name returns the name of the artifacts phase
func (p *ArtifactsPhase) Name() string {
	return "Artifacts"
}

// Execute builds and persists the artifacts
func (p *ArtifactsPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	log := phaseCtx.Logger.WithValues("phase", p.Name())
	am := phaseCtx.ArtifactManager

	desired, err := am.BuildAll(phaseCtx.Dependencies)
	if err != nil {
		return PhaseResult{Error: Classify("BuildError", "failed to build configuration", err)}
	}
	phaseCtx.Desired = desired

	for _, a := range desired.Peers {
		if _, err := am.Persist(ctx, phaseCtx.Subject, a); err != nil {
			log.Error(err, "Failed to persist peer inventory", "path", a.Path)
		}
	}

	written, err := am.Persist(ctx, phaseCtx.Subject, desired.Primary)
	if err != nil {
		return PhaseResult{Error: Classify("ArtifactError", "failed to persist primary configuration", err)}
	}
	if written {
		if err := phaseCtx.PlanManager.MarkRestartPending(ctx); err != nil {
			log.Error(err, "Restart will not survive a failed pass")
		}
	}
	phaseCtx.RestartRequired = written || phaseCtx.PlanManager.RestartPending(ctx)

	log.V(1).Info("Artifacts persisted", "restartRequired", phaseCtx.RestartRequired)
	return PhaseResult{}
}

// ShouldSkip determines if artifacts phase should be skipped
func (p *ArtifactsPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// WorkloadPhase applies the service plan and restarts the service when the
// primary configuration changed.
type WorkloadPhase struct{}

// Name returns the name of the workload phase
func (p *WorkloadPhase) Name() string {
	return "Workload"
}

// Execute applies the plan
func (p *WorkloadPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	pm := phaseCtx.PlanManager

	if _, err := pm.EnsurePlan(ctx, phaseCtx.Subject); err != nil {
		return PhaseResult{Error: Classify("PlanError", "failed to apply plan", err)}
	}

	if phaseCtx.RestartRequired {
		if err := pm.Restart(ctx, phaseCtx.Subject); err != nil {
			return PhaseResult{Error: Classify("RestartError", "failed to restart service", err)}
		}
	}
	return PhaseResult{}
}

// ShouldSkip determines if workload phase should be skipped
func (p *WorkloadPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// PublishPhase advertises the endpoints of the running service
type PublishPhase struct{}

// Name returns the name of the publish phase
func (p *PublishPhase) Name() string {
	return "Publish"
}

// Execute publishes the endpoints
func (p *PublishPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	if err := phaseCtx.PublishManager.PublishEndpoints(ctx, phaseCtx.Subject); err != nil {
		return PhaseResult{Error: Classify("PublishError", "failed to publish endpoints", err)}
	}
	return PhaseResult{}
}

// ShouldSkip determines if publish phase should be skipped
func (p *PublishPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}
