package phases

import (
	"context"
)

// LeadershipPhase stops the pass on units without write authority. The
// leader opens the workload ports and requests the ingress.
type LeadershipPhase struct{}

// Name returns the name of the leadership phase
func (p *LeadershipPhase) Name() string {
	return "Leadership"
}

// Execute checks leadership
func (p *LeadershipPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	log := phaseCtx.Logger.WithValues("phase", p.Name())

	phaseCtx.Leader = phaseCtx.Checker.IsLeader(ctx)
	if !phaseCtx.Leader {
		log.V(1).Info("Unit is not the leader, nothing to do")
		return PhaseResult{Skip: true}
	}

	if err := phaseCtx.PublishManager.OpenPorts(ctx); err != nil {
		return PhaseResult{Error: Classify("PortError", "failed to open ports", err)}
	}
	if err := phaseCtx.PublishManager.RequestIngress(ctx); err != nil {
		return PhaseResult{Error: Classify("IngressRequestError", "failed to request ingress", err)}
	}
	return PhaseResult{}
}

// ShouldSkip determines if leadership phase should be skipped
func (p *LeadershipPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// RelationsPhase requests the databases and waits until both database
// relations are established.
type RelationsPhase struct{}

// Name returns the name of the relations phase
func (p *RelationsPhase) Name() string {
	return "Relations"
}

// Execute performs the database requests and the relation gate
func (p *RelationsPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	log := phaseCtx.Logger.WithValues("phase", p.Name())

	if err := phaseCtx.PublishManager.RequestDatabases(ctx); err != nil {
		return PhaseResult{Error: Classify("DatabaseRequestError", "failed to request databases", err)}
	}

	for _, name := range phaseCtx.Config.Relations.RequiredDatabases() {
		if !phaseCtx.Checker.RelationEstablished(ctx, name) {
			log.V(1).Info("Waiting for relation", "relation", name)
			return PhaseResult{Skip: true}
		}
	}
	return PhaseResult{}
}

// ShouldSkip determines if relations phase should be skipped
func (p *RelationsPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// AvailabilityPhase waits until both databases are provisioned, common first.
type AvailabilityPhase struct{}

// Name returns the name of the availability phase
func (p *AvailabilityPhase) Name() string {
	return "Availability"
}

// Execute performs the availability gate
func (p *AvailabilityPhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	for _, name := range phaseCtx.Config.Relations.RequiredDatabases() {
		if !phaseCtx.Checker.ResourceProvisioned(ctx, name) {
			phaseCtx.Logger.V(1).Info("Waiting for database", "phase", p.Name(), "relation", name)
			return PhaseResult{Skip: true}
		}
	}
	return PhaseResult{}
}

// ShouldSkip determines if availability phase should be skipped
func (p *AvailabilityPhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// RuntimePhase waits for the workload supervisor
type RuntimePhase struct{}

// Name returns the name of the runtime phase
func (p *RuntimePhase) Name() string {
	return "Runtime"
}

// Execute performs the runtime gate
func (p *RuntimePhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	if !phaseCtx.Checker.RuntimeReachable(ctx) {
		phaseCtx.Logger.V(1).Info("Waiting for container", "phase", p.Name())
		return PhaseResult{Skip: true}
	}
	return PhaseResult{}
}

// ShouldSkip determines if runtime phase should be skipped
func (p *RuntimePhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}

// StoragePhase waits for the storage mount and snapshots the dependencies
// the artifacts are built from.
type StoragePhase struct{}

// Name returns the name of the storage phase
func (p *StoragePhase) Name() string {
	return "Storage"
}

// Execute performs the storage gate
func (p *StoragePhase) Execute(ctx context.Context, phaseCtx *PhaseContext) PhaseResult {
	if !phaseCtx.Checker.DurableStorageAttached(ctx) {
		phaseCtx.Logger.V(1).Info("Waiting for storage", "phase", p.Name())
		return PhaseResult{Skip: true}
	}

	phaseCtx.Dependencies = phaseCtx.Checker.Dependencies(ctx)
	phaseCtx.Logger.V(1).Info("Dependencies", "phase", p.Name(), "set", phaseCtx.Dependencies.String())
	return PhaseResult{}
}

// ShouldSkip determines if storage phase should be skipped
func (p *StoragePhase) ShouldSkip(ctx context.Context, phaseCtx *PhaseContext) bool {
	return false
}
