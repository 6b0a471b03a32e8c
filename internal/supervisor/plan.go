package supervisor

import (
	"fmt"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/equality"
)

// Override controls how a layer's service merges with earlier layers.
type Override string

const (
	OverrideMerge   Override = "merge"
	OverrideReplace Override = "replace"
)

// Startup controls whether a service starts automatically.
type Startup string

const (
	StartupEnabled  Startup = "enabled"
	StartupDisabled Startup = "disabled"
)

// Service is the declared configuration of one supervised service.
type Service struct {
	Summary     string            `yaml:"summary,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Startup     Startup           `yaml:"startup,omitempty"`
	Override    Override          `yaml:"override,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Layer is a unit of configuration added to the supervisor's plan.
type Layer struct {
	Summary     string              `yaml:"summary,omitempty"`
	Description string              `yaml:"description,omitempty"`
	Services    map[string]*Service `yaml:"services,omitempty"`
}

// Plan is the combined view of every layer.
type Plan struct {
	Services map[string]*Service `yaml:"services,omitempty"`
}

// Marshal renders the layer as YAML.
func (l *Layer) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal layer: %w", err)
	}
	return data, nil
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	plan := &Plan{}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if plan.Services == nil {
		plan.Services = map[string]*Service{}
	}
	return plan, nil
}

// ServicesEqual reports whether the plan declares exactly the services of the
// layer. Nil and empty environments compare equal.
func (p *Plan) ServicesEqual(l *Layer) bool {
	var have, want map[string]*Service
	if p != nil {
		have = p.Services
	}
	if l != nil {
		want = l.Services
	}
	return equality.Semantic.DeepEqual(have, want)
}
