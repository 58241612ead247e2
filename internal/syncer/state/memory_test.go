package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegean-labs/stockroom/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, s.Status)

	s.RunID = "run-1"
	s.Status = model.SyncStatusInProgress
	s.Page = 3
	require.NoError(t, store.Save(ctx, s))

	// The store hands out copies, not the saved pointer.
	s.Page = 99

	loaded, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, 3, loaded.Page)

	require.NoError(t, store.Reset(ctx))
	fresh, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, fresh.Status)
}

func TestMemoryStoreDiscardsStaleRuns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)

	s := model.DefaultSyncState()
	s.RunID = "run-1"
	s.Status = model.SyncStatusInProgress
	s.StartedAt = time.Now().Add(-model.StaleAfter - time.Minute)
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, loaded.Status)

	// The stale run's lease went with it.
	ok, err = store.Acquire(ctx, "run-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLease(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-entrant for the same run, exclusive across runs.
	ok, err = store.Acquire(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Releasing someone else's lease is a no-op.
	require.NoError(t, store.Release(ctx, "run-2"))
	ok, err = store.Acquire(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "run-1"))
	ok, err = store.Acquire(ctx, "run-2")
	require.NoError(t, err)
	assert.True(t, ok)
}
