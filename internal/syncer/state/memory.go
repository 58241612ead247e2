package state

import (
	"context"
	"sync"
	"time"

	"github.com/aegean-labs/stockroom/internal/model"
)

// MemoryStore keeps the run state in process memory. Used when no Redis
// address is configured; state does not survive a restart, which only
// costs an interactive run its resume point.
type MemoryStore struct {
	mu     sync.Mutex
	state  *model.SyncState
	holder string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*model.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil || m.state.Stale(time.Now()) {
		// Discarding a stale run also frees its lease, matching the
		// lease TTL the Redis store relies on.
		m.state = nil
		m.holder = ""
		return model.DefaultSyncState(), nil
	}

	copied := *m.state
	return &copied, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *model.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *s
	m.state = &copied
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = nil
	return nil
}

func (m *MemoryStore) Acquire(ctx context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holder != "" && m.holder != runID {
		return false, nil
	}
	m.holder = runID
	return true, nil
}

func (m *MemoryStore) Release(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holder == runID {
		m.holder = ""
	}
	return nil
}
