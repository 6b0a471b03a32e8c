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
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/artifacts"
	"github.com/cappyzawa/webui-operator/internal/dependency"
	"github.com/cappyzawa/webui-operator/internal/metrics"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

// DesiredArtifacts holds every artifact of one pass
type DesiredArtifacts struct {
	Primary artifacts.Artifact
	Peers   []artifacts.Artifact
}

// ArtifactManager builds the configuration artifacts and persists them in
// the workload when they differ from what is stored.
type ArtifactManager struct {
	builder    *artifacts.Builder
	supervisor supervisor.Supervisor
	recorder   record.EventRecorder
	metrics    *metrics.Collector
}

// NewArtifactManager creates a new ArtifactManager instance
func NewArtifactManager(builder *artifacts.Builder, sup supervisor.Supervisor, recorder record.EventRecorder, m *metrics.Collector) *ArtifactManager {
	return &ArtifactManager{
		builder:    builder,
		supervisor: sup,
		recorder:   recorder,
		metrics:    m,
	}
}

// BuildAll builds the primary configuration and both peer inventories. No
// artifact is returned unless all of them could be built.
func (am *ArtifactManager) BuildAll(deps dependency.Set) (DesiredArtifacts, error) {
	primary, err := am.builder.BuildPrimaryConfig(deps)
	if err != nil {
		return DesiredArtifacts{}, err
	}

	desired := DesiredArtifacts{Primary: primary}
	for _, kind := range []artifacts.PeerKind{artifacts.PeerUPF, artifacts.PeerGNB} {
		a, err := am.builder.BuildPeerListConfig(kind, deps)
		if err != nil {
			return DesiredArtifacts{}, err
		}
		desired.Peers = append(desired.Peers, a)
	}
	return desired, nil
}

// Persist writes a when the stored copy is absent or differs. It reports
// whether a write happened.
func (am *ArtifactManager) Persist(ctx context.Context, subject runtime.Object, a artifacts.Artifact) (bool, error) {
	log := ctrl.LoggerFrom(ctx).WithValues("path", a.Path)

	current, err := am.supervisor.ReadFile(ctx, a.Path)
	switch {
	case err == nil:
		if artifacts.ContentEqual(a.Path, current, a.Bytes()) {
			log.V(1).Info("Artifact is up to date")
			return false, nil
		}
	case errors.Is(err, supervisor.ErrNotFound):
		log.V(1).Info("Artifact is not stored yet")
	default:
		return false, fmt.Errorf("failed to read %s: %w", a.Path, err)
	}

	if err := am.supervisor.WriteFile(ctx, a.Path, a.Bytes()); err != nil {
		emit(am.recorder, subject, EventTypeWarning, EventReasonArtifactError, "Failed to write %s: %v", a.Path, err)
		return false, fmt.Errorf("failed to write %s: %w", a.Path, err)
	}

	am.metrics.ArtifactWritten(a.Path)
	emit(am.recorder, subject, EventTypeNormal, EventReasonArtifactWritten, "Wrote %s", a.Path)
	log.Info("Pushed configuration file")
	return true, nil
}
