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

// Package supervisor is the boundary to the process supervisor running inside
// the workload container.
package supervisor

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ReadFile when the path does not exist.
var ErrNotFound = errors.New("file not found")

// ErrUnreachable is returned when the supervisor cannot be contacted.
var ErrUnreachable = errors.New("supervisor unreachable")

// Supervisor is implemented by the workload container's process supervisor.
// Every method is a single synchronous request; none retries.
type Supervisor interface {
	// Reachable reports whether the supervisor answers requests
	Reachable(ctx context.Context) bool

	// FileExists reports whether path exists in the container
	FileExists(ctx context.Context, path string) (bool, error)

	// ReadFile returns the content stored at path or ErrNotFound
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile stores content at path, creating parent directories
	WriteFile(ctx context.Context, path string, content []byte) error

	// CurrentPlan returns the combined service plan
	CurrentPlan(ctx context.Context) (*Plan, error)

	// ApplyPlan merges layer into the plan under label and replans
	ApplyPlan(ctx context.Context, label string, layer *Layer) error

	// RestartService restarts the named service
	RestartService(ctx context.Context, name string) error

	// ServiceRunning reports whether the named service is active
	ServiceRunning(ctx context.Context, name string) (bool, error)
}
