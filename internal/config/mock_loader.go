package config

import (
	"context"
)

// MockLoader implements the ConfigLoader interface for testing
type MockLoader struct {
	config *OperatorConfig
	err    error
	events chan ConfigEvent
}

// NewMockLoader creates a new MockLoader returning the defaults
func NewMockLoader() *MockLoader {
	return &MockLoader{
		config: DefaultOperatorConfig(),
		events: make(chan ConfigEvent, 10),
	}
}

// Load returns the mock configuration
func (m *MockLoader) Load(ctx context.Context) (*OperatorConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.config.DeepCopy(), nil
}

// SetConfig sets the mock configuration
func (m *MockLoader) SetConfig(config *OperatorConfig) {
	m.config = config
}

// SetError sets the error to be returned by Load
func (m *MockLoader) SetError(err error) {
	m.err = err
}

// Emit queues an event for the channel returned by Watch
func (m *MockLoader) Emit(event ConfigEvent) {
	m.events <- event
}

// Watch returns the channel fed by Emit
func (m *MockLoader) Watch(ctx context.Context) (<-chan ConfigEvent, error) {
	return m.events, nil
}

// Close does nothing for the mock
func (m *MockLoader) Close() error {
	return nil
}
