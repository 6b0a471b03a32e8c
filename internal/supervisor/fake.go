package supervisor

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// FakeSupervisor is an in-memory Supervisor for tests. Counters record the
// mutating calls so tests can assert that a pass had no side effects.
type FakeSupervisor struct {
	mu sync.Mutex

	reachable bool
	files     map[string][]byte
	dirs      map[string]bool
	plan      *Plan
	running   map[string]bool

	// StartOnReplan marks services of an applied layer as running
	StartOnReplan bool

	Writes   map[string]int
	Applies  int
	Restarts map[string]int
}

// NewFakeSupervisor returns a reachable supervisor with an empty plan.
func NewFakeSupervisor() *FakeSupervisor {
	return &FakeSupervisor{
		reachable:     true,
		files:         map[string][]byte{},
		dirs:          map[string]bool{"/": true},
		plan:          &Plan{Services: map[string]*Service{}},
		running:       map[string]bool{},
		StartOnReplan: true,
		Writes:        map[string]int{},
		Restarts:      map[string]int{},
	}
}

// SetReachable toggles reachability
func (f *FakeSupervisor) SetReachable(reachable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reachable = reachable
}

// MakeDir creates dir and its parents, as a storage mount would.
func (f *FakeSupervisor) MakeDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAll(dir)
}

// SetFile stores content without counting it as a write.
func (f *FakeSupervisor) SetFile(p string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAll(path.Dir(p))
	f.files[p] = append([]byte(nil), content...)
}

// SetRunning sets whether the named service is running
func (f *FakeSupervisor) SetRunning(name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[name] = running
}

// TotalWrites returns the number of WriteFile calls across all paths
func (f *FakeSupervisor) TotalWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Writes {
		n += c
	}
	return n
}

// TotalRestarts returns the number of RestartService calls
func (f *FakeSupervisor) TotalRestarts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Restarts {
		n += c
	}
	return n
}

// Reachable implements Supervisor
func (f *FakeSupervisor) Reachable(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

// FileExists implements Supervisor
func (f *FakeSupervisor) FileExists(_ context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return false, ErrUnreachable
	}
	_, isFile := f.files[p]
	return isFile || f.dirs[path.Clean(p)], nil
}

// ReadFile implements Supervisor
func (f *FakeSupervisor) ReadFile(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return nil, ErrUnreachable
	}
	content, ok := f.files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return append([]byte(nil), content...), nil
}

// WriteFile implements Supervisor
func (f *FakeSupervisor) WriteFile(_ context.Context, p string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return ErrUnreachable
	}
	f.mkdirAll(path.Dir(p))
	f.files[p] = append([]byte(nil), content...)
	f.Writes[p]++
	return nil
}

// CurrentPlan implements Supervisor
func (f *FakeSupervisor) CurrentPlan(_ context.Context) (*Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return nil, ErrUnreachable
	}
	out := &Plan{Services: make(map[string]*Service, len(f.plan.Services))}
	for name, svc := range f.plan.Services {
		c := *svc
		out.Services[name] = &c
	}
	return out, nil
}

// ApplyPlan implements Supervisor
func (f *FakeSupervisor) ApplyPlan(_ context.Context, _ string, layer *Layer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return ErrUnreachable
	}
	for name, svc := range layer.Services {
		c := *svc
		f.plan.Services[name] = &c
		if f.StartOnReplan && svc.Startup == StartupEnabled {
			f.running[name] = true
		}
	}
	f.Applies++
	return nil
}

// RestartService implements Supervisor
func (f *FakeSupervisor) RestartService(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return ErrUnreachable
	}
	if _, ok := f.plan.Services[name]; !ok {
		return fmt.Errorf("service %q not in plan", name)
	}
	f.running[name] = true
	f.Restarts[name]++
	return nil
}

// ServiceRunning implements Supervisor
func (f *FakeSupervisor) ServiceRunning(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reachable {
		return false, ErrUnreachable
	}
	return f.running[name], nil
}

func (f *FakeSupervisor) mkdirAll(dir string) {
	dir = path.Clean(dir)
	for dir != "/" && dir != "." {
		f.dirs[dir] = true
		dir = path.Dir(dir)
	}
	f.dirs["/"] = true
}
