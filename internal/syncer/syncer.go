package syncer

import (
	"context"

	"github.com/aegean-labs/stockroom/internal/model"
)

// UseCase drives catalog reconciliation. Step processes a single page and
// saves a resumable state, RunComplete loops pages until the catalog is
// exhausted.
type UseCase interface {
	Step(ctx context.Context, full bool) (*model.SyncResult, error)
	RunComplete(ctx context.Context, full bool) (*model.SyncResult, error)
	Progress(ctx context.Context) (*model.SyncState, error)
	Reset(ctx context.Context) error
}

// StateStore persists the resumable run state between interactive steps.
// Get returns a fresh default state when nothing usable is stored, so
// callers never see a nil state.
type StateStore interface {
	Get(ctx context.Context) (*model.SyncState, error)
	Save(ctx context.Context, state *model.SyncState) error
	Reset(ctx context.Context) error
}

// Lease serializes runs. Acquire returns false when another run holds the
// lease; Release is a no-op for runs that do not hold it.
type Lease interface {
	Acquire(ctx context.Context, runID string) (bool, error)
	Release(ctx context.Context, runID string) error
}
