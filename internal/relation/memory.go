package relation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryExchange is an in-process Exchange and Leadership for tests.
type MemoryExchange struct {
	mu        sync.RWMutex
	nextID    int
	leader    bool
	relations map[int]*memoryRelation
}

type memoryRelation struct {
	rel    Relation
	remote map[string]string
	local  map[string]string
}

// NewMemoryExchange returns an empty exchange where this unit is the leader.
func NewMemoryExchange() *MemoryExchange {
	return &MemoryExchange{
		leader:    true,
		relations: make(map[int]*memoryRelation),
	}
}

// AddRelation establishes a relation of endpoint name with remoteApp.
func (m *MemoryExchange) AddRelation(name, remoteApp string) Relation {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel := Relation{ID: m.nextID, Name: name, RemoteApp: remoteApp}
	m.nextID++
	m.relations[rel.ID] = &memoryRelation{
		rel:    rel,
		remote: map[string]string{},
		local:  map[string]string{},
	}
	return rel
}

// RemoveRelation tears down the relation and drops both databags.
func (m *MemoryExchange) RemoveRelation(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.relations, id)
}

// UpdateRemoteAppData merges data into the remote application's databag. An
// empty value deletes the key.
func (m *MemoryExchange) UpdateRemoteAppData(id int, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.relations[id]
	if !ok {
		return fmt.Errorf("%w: relation id %d", ErrNoRelation, id)
	}
	merge(r.remote, data)
	return nil
}

// SetLeader changes the leadership of this unit.
func (m *MemoryExchange) SetLeader(leader bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leader = leader
}

// IsLeader implements Leadership
func (m *MemoryExchange) IsLeader(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leader, nil
}

// Relations implements Exchange
func (m *MemoryExchange) Relations(_ context.Context, name string) ([]Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Relation
	for _, r := range m.relations {
		if r.rel.Name == name {
			out = append(out, r.rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RemoteAppData implements Exchange
func (m *MemoryExchange) RemoteAppData(_ context.Context, rel Relation) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.relations[rel.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRelation, rel)
	}
	return copyData(r.remote), nil
}

// LocalAppData implements Exchange
func (m *MemoryExchange) LocalAppData(_ context.Context, rel Relation) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.relations[rel.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRelation, rel)
	}
	return copyData(r.local), nil
}

// SetLocalAppData implements Exchange
func (m *MemoryExchange) SetLocalAppData(_ context.Context, rel Relation, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.relations[rel.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRelation, rel)
	}
	if !m.leader {
		return ErrNotAuthorized
	}
	merge(r.local, data)
	return nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

func copyData(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
