package status

import (
	"context"
	"sync"
)

// MemorySetter keeps the statuses it was given, for tests. Both operator
// modes report through the hook tools.
type MemorySetter struct {
	mu      sync.Mutex
	history []Status
}

// NewMemorySetter returns an empty MemorySetter
func NewMemorySetter() *MemorySetter {
	return &MemorySetter{}
}

// SetStatus records status
func (m *MemorySetter) SetStatus(_ context.Context, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, status)
	return nil
}

// Current returns the last status set, or the zero Status
func (m *MemorySetter) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Status{}
	}
	return m.history[len(m.history)-1]
}

// History returns a copy of every status set so far
func (m *MemorySetter) History() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, len(m.history))
	copy(out, m.history)
	return out
}
