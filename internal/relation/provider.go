package relation

import (
	"context"
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/schema"
)

// Provider writes T into this application's databag of every relation of one
// endpoint.
type Provider[T any] struct {
	name       string
	exchange   Exchange
	leadership Leadership
}

// NewProvider creates a Provider for endpoint name.
func NewProvider[T any](exchange Exchange, leadership Leadership, name string) *Provider[T] {
	return &Provider[T]{
		name:       name,
		exchange:   exchange,
		leadership: leadership,
	}
}

// Name returns the endpoint name
func (p *Provider[T]) Name() string {
	return p.name
}

// Publish writes payload to every established relation of the endpoint. The
// write is attempted even when the databag already holds the same content,
// since relation membership may have changed.
func (p *Provider[T]) Publish(ctx context.Context, payload T) error {
	data, err := p.prepare(ctx, payload)
	if err != nil {
		return err
	}

	rels, err := p.exchange.Relations(ctx, p.name)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.name, err)
	}
	if len(rels) == 0 {
		return fmt.Errorf("%w: %s", ErrNoRelation, p.name)
	}

	for _, rel := range rels {
		if err := p.exchange.SetLocalAppData(ctx, rel, data); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", rel, err)
		}
	}
	ctrl.LoggerFrom(ctx).V(1).Info("Published relation data", "relation", p.name, "relations", len(rels))
	return nil
}

func (p *Provider[T]) prepare(ctx context.Context, payload T) (map[string]string, error) {
	leader, err := p.leadership.IsLeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to determine leadership: %w", err)
	}
	if !leader {
		return nil, ErrNotAuthorized
	}
	return schema.Encode(payload)
}
