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

package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/canonical/pebble/client"
	ctrl "sigs.k8s.io/controller-runtime"
)

const errorKindNotFound = "not-found"

// PebbleSupervisor talks to a Pebble daemon over its unix socket.
type PebbleSupervisor struct {
	client      *client.Client
	socket      string
	waitTimeout time.Duration
}

// NewPebbleSupervisor creates a supervisor client for the Pebble socket at
// socketPath. Changes started by replan and restart are awaited for at most
// waitTimeout.
func NewPebbleSupervisor(socketPath string, waitTimeout time.Duration) (*PebbleSupervisor, error) {
	c, err := client.New(&client.Config{Socket: socketPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create pebble client for %s: %w", socketPath, err)
	}
	return &PebbleSupervisor{client: c, socket: socketPath, waitTimeout: waitTimeout}, nil
}

// Reachable implements Supervisor
func (p *PebbleSupervisor) Reachable(ctx context.Context) bool {
	if _, err := p.client.SysInfo(); err != nil {
		ctrl.LoggerFrom(ctx).V(1).Info("Pebble not reachable", "socket", p.socket, "error", err.Error())
		return false
	}
	return true
}

// FileExists implements Supervisor
func (p *PebbleSupervisor) FileExists(_ context.Context, path string) (bool, error) {
	_, err := p.client.ListFiles(&client.ListFilesOptions{Path: path, Itself: true})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// ReadFile implements Supervisor
func (p *PebbleSupervisor) ReadFile(_ context.Context, path string) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.client.Pull(&client.PullOptions{Path: path, Target: &buf}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to pull %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// WriteFile implements Supervisor
func (p *PebbleSupervisor) WriteFile(_ context.Context, path string, content []byte) error {
	err := p.client.Push(&client.PushOptions{
		Source:   bytes.NewReader(content),
		Path:     path,
		MakeDirs: true,
	})
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", path, err)
	}
	return nil
}

// CurrentPlan implements Supervisor
func (p *PebbleSupervisor) CurrentPlan(_ context.Context) (*Plan, error) {
	data, err := p.client.PlanBytes(&client.PlanOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan: %w", err)
	}
	return ParsePlan(data)
}

// ApplyPlan implements Supervisor
func (p *PebbleSupervisor) ApplyPlan(ctx context.Context, label string, layer *Layer) error {
	data, err := layer.Marshal()
	if err != nil {
		return err
	}
	if err := p.client.AddLayer(&client.AddLayerOptions{
		Combine:   true,
		Label:     label,
		LayerData: data,
	}); err != nil {
		return fmt.Errorf("failed to add layer %s: %w", label, err)
	}

	changeID, err := p.client.Replan(&client.ServiceOptions{})
	if err != nil {
		return fmt.Errorf("failed to replan: %w", err)
	}
	return p.wait(ctx, changeID)
}

// RestartService implements Supervisor
func (p *PebbleSupervisor) RestartService(ctx context.Context, name string) error {
	changeID, err := p.client.Restart(&client.ServiceOptions{Names: []string{name}})
	if err != nil {
		return fmt.Errorf("failed to restart %s: %w", name, err)
	}
	return p.wait(ctx, changeID)
}

// ServiceRunning implements Supervisor
func (p *PebbleSupervisor) ServiceRunning(_ context.Context, name string) (bool, error) {
	services, err := p.client.Services(&client.ServicesOptions{Names: []string{name}})
	if err != nil {
		return false, fmt.Errorf("failed to query service %s: %w", name, err)
	}
	for _, svc := range services {
		if svc.Name == name {
			return svc.Current == client.StatusActive, nil
		}
	}
	return false, nil
}

func (p *PebbleSupervisor) wait(ctx context.Context, changeID string) error {
	if changeID == "" {
		return nil
	}
	change, err := p.client.WaitChange(changeID, &client.WaitChangeOptions{Timeout: p.waitTimeout})
	if err != nil {
		return fmt.Errorf("failed to wait for change %s: %w", changeID, err)
	}
	if change.Err != "" {
		return fmt.Errorf("change %s failed: %s", changeID, change.Err)
	}
	ctrl.LoggerFrom(ctx).V(1).Info("Pebble change completed", "change", changeID, "kind", change.Kind)
	return nil
}

func isNotFound(err error) bool {
	var perr *client.Error
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Kind == errorKindNotFound || perr.StatusCode == http.StatusNotFound
}
