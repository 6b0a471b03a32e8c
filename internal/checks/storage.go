package checks

import (
	"context"
	"fmt"

	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

// StorageView reports whether a named storage mount is attached
type StorageView interface {
	Attached(ctx context.Context, mount string) (bool, error)
}

// PathStorage treats a mount as attached once its mount point exists inside
// the workload container.
type PathStorage struct {
	supervisor supervisor.Supervisor
	paths      map[string]string
}

// NewPathStorage maps each mount name to its mount point
func NewPathStorage(sup supervisor.Supervisor, paths map[string]string) *PathStorage {
	return &PathStorage{supervisor: sup, paths: paths}
}

// Attached implements StorageView
func (s *PathStorage) Attached(ctx context.Context, mount string) (bool, error) {
	p, ok := s.paths[mount]
	if !ok {
		return false, fmt.Errorf("unknown storage %q", mount)
	}
	return s.supervisor.FileExists(ctx, p)
}
