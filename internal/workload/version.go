package workload

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

// Version reads the workload version shipped in the image at path. It
// returns "" when the file is absent or unreadable. Semantic versions are
// reported in canonical form without the "v" prefix; any other content is
// reported trimmed.
func Version(ctx context.Context, sup supervisor.Supervisor, path string) string {
	log := ctrl.LoggerFrom(ctx).WithValues("path", path)

	content, err := sup.ReadFile(ctx, path)
	if err != nil {
		if !errors.Is(err, supervisor.ErrNotFound) {
			log.V(1).Info("Failed to read workload version", "error", err.Error())
		}
		return ""
	}

	raw := strings.TrimSpace(string(content))
	if raw == "" {
		return ""
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		log.V(1).Info("Workload version is not semver", "version", raw)
		return raw
	}
	return v.String()
}
