package relation

import (
	"context"
	"sync"
)

// ObservedStore persists, per requirer, the digest of the last payload that
// was announced for each relation. Hook-based deployments back it with unit
// state so that announcements survive across process invocations.
type ObservedStore interface {
	Load(ctx context.Context, key string) (map[string]string, error)
	Save(ctx context.Context, key string, digests map[string]string) error
}

// MemoryObservedStore keeps digests for the lifetime of the process.
type MemoryObservedStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemoryObservedStore returns an empty store.
func NewMemoryObservedStore() *MemoryObservedStore {
	return &MemoryObservedStore{data: map[string]map[string]string{}}
}

// Load implements ObservedStore
func (s *MemoryObservedStore) Load(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyData(s.data[key]), nil
}

// Save implements ObservedStore
func (s *MemoryObservedStore) Save(_ context.Context, key string, digests map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copyData(digests)
	return nil
}
