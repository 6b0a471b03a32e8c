package reconciler

import (
	"context"
	"errors"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/controller/phases"
)

// Pipeline implements the phase-based convergence pipeline
type Pipeline struct {
	// Phases for a convergence pass, in gate order
	normalPhases []phases.Phase
	// Phases run at the end of every pass
	finalPhases []phases.Phase
}

// NewPipeline creates the convergence pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		normalPhases: []phases.Phase{
			&phases.LeadershipPhase{},
			&phases.RelationsPhase{},
			&phases.AvailabilityPhase{},
			&phases.RuntimePhase{},
			&phases.StoragePhase{},
			&phases.ArtifactsPhase{},
			&phases.WorkloadPhase{},
			&phases.PublishPhase{},
		},
		finalPhases: []phases.Phase{
			&phases.VersionPhase{},
			&phases.StatusPhase{},
		},
	}
}

// Execute runs the pipeline. When converge is false only the final phases
// run.
func (p *Pipeline) Execute(ctx context.Context, phaseCtx *phases.PhaseContext, converge bool) (ctrl.Result, error) {
	log := phaseCtx.Logger.WithValues("pipeline", "webui")

	var passErr error
	var result ctrl.Result
	if converge {
		log.V(1).Info("Executing convergence pipeline", "trigger", phaseCtx.Trigger)
		result, passErr = p.executeNormalPipeline(ctx, phaseCtx)
	} else {
		log.V(1).Info("Trigger needs no convergence, reporting status only", "trigger", phaseCtx.Trigger)
	}

	finalErr := p.executeFinalPipeline(ctx, phaseCtx)
	if passErr != nil {
		return ctrl.Result{}, passErr
	}
	return result, finalErr
}

// executeNormalPipeline executes the convergence phases. Non-fatal errors end
// the pass quietly; the next trigger starts over from the first gate.
func (p *Pipeline) executeNormalPipeline(ctx context.Context, phaseCtx *phases.PhaseContext) (ctrl.Result, error) {
	log := phaseCtx.Logger.WithValues("pipeline", "normal")

	for _, phase := range p.normalPhases {
		// Check if phase should be skipped
		if phase.ShouldSkip(ctx, phaseCtx) {
			log.V(1).Info("Skipping phase", "phase", phase.Name())
			continue
		}

		log.V(1).Info("Executing phase", "phase", phase.Name())
		result := phase.Execute(ctx, phaseCtx)

		// Handle phase result
		if result.Error != nil {
			return ctrl.Result{}, p.handleError(ctx, phaseCtx, phase, result.Error)
		}

		if result.Requeue {
			log.V(1).Info("Phase requested requeue", "phase", phase.Name(), "after", result.RequeueAfter)
			return ctrl.Result{
				Requeue:      true,
				RequeueAfter: result.RequeueAfter,
			}, nil
		}

		if result.Skip {
			log.V(1).Info("Phase requested to skip remaining phases", "phase", phase.Name())
			break
		}

		log.V(1).Info("Phase completed successfully", "phase", phase.Name())
	}

	log.V(1).Info("Normal pipeline execution completed")
	return ctrl.Result{}, nil
}

// executeFinalPipeline executes the phases that run on every pass
func (p *Pipeline) executeFinalPipeline(ctx context.Context, phaseCtx *phases.PhaseContext) error {
	log := phaseCtx.Logger.WithValues("pipeline", "final")

	for _, phase := range p.finalPhases {
		if phase.ShouldSkip(ctx, phaseCtx) {
			log.V(1).Info("Skipping phase", "phase", phase.Name())
			continue
		}
		if result := phase.Execute(ctx, phaseCtx); result.Error != nil {
			log.Error(result.Error, "Phase execution failed", "phase", phase.Name())
			return result.Error
		}
	}
	return nil
}

// handleError records err and decides whether it escapes the pass
func (p *Pipeline) handleError(ctx context.Context, phaseCtx *phases.PhaseContext, phase phases.Phase, err error) error {
	log := ctrl.LoggerFrom(ctx)

	var re *phases.ReconcileError
	if !errors.As(err, &re) {
		re = phases.Classify("PhaseError", phase.Name()+" failed", err)
	}

	if phaseCtx.Recorder != nil && phaseCtx.Subject != nil {
		phaseCtx.Recorder.Eventf(phaseCtx.Subject, re.EventType, re.EventReason, "%s", re.Message)
	}

	if re.Fatal() {
		log.Error(re, "Reconciliation error", "phase", phase.Name(), "category", string(re.Category), "reason", re.EventReason)
		return re
	}

	log.Info("Pass ended early", "phase", phase.Name(), "category", string(re.Category), "reason", re.EventReason, "error", re.Error())
	return nil
}
