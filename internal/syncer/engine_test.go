package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/catalog"
	"github.com/aegean-labs/stockroom/internal/db"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	invrepo "github.com/aegean-labs/stockroom/internal/inventory/repository"
	"github.com/aegean-labs/stockroom/internal/model"
	runrepo "github.com/aegean-labs/stockroom/internal/runlog/repository"
	"github.com/aegean-labs/stockroom/internal/syncer/state"
)

type fakeCatalog struct {
	products   []catalog.Product
	variable   []catalog.Product
	variations map[int64][]catalog.Variation
	connectErr error
}

func (f *fakeCatalog) TestConnection(ctx context.Context) error {
	return f.connectErr
}

func paginate(items []catalog.Product, perPage, page int) []catalog.Product {
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (f *fakeCatalog) Products(ctx context.Context, perPage, page int) []catalog.Product {
	return paginate(f.products, perPage, page)
}

func (f *fakeCatalog) VariableProducts(ctx context.Context, perPage, page int) []catalog.Product {
	return paginate(f.variable, perPage, page)
}

func (f *fakeCatalog) PublishedVariations(ctx context.Context, parentID int64) []catalog.Variation {
	return f.variations[parentID]
}

func (f *fakeCatalog) TotalProducts(ctx context.Context) (int, error) {
	return len(f.products), nil
}

func (f *fakeCatalog) TotalVariableProducts(ctx context.Context) (int, error) {
	return len(f.variable), nil
}

func simpleProduct(id int64, name string) catalog.Product {
	return catalog.Product{
		ID:     id,
		Name:   name,
		SKU:    fmt.Sprintf("SKU-%d", id),
		Type:   "simple",
		Status: "publish",
		Price:  "10.00",
		Categories: []catalog.Category{
			{ID: 1, Name: "Hardware"},
		},
	}
}

func testEnv(t *testing.T, cat *fakeCatalog) (*Engine, *invrepo.SQLiteRepository, *runrepo.SQLiteRepository, *state.MemoryStore) {
	t.Helper()

	conn := db.NewTestDB(t)
	repo := invrepo.NewSQLiteRepository(conn)
	runs := runrepo.NewSQLiteRepository(conn)
	store := state.NewMemoryStore()

	cfg := &config.Config{
		Catalog:   config.CatalogConfig{PerPage: 15, VariablePerPage: 2},
		Inventory: config.InventoryConfig{DefaultLowStockThreshold: 5},
	}

	engine := NewEngine(cat, repo, runs, store, store, cfg, zap.NewNop())
	return engine, repo, runs, store
}

func catalogWithPages() *fakeCatalog {
	cat := &fakeCatalog{variations: map[int64][]catalog.Variation{}}
	for i := int64(1); i <= 45; i++ {
		cat.products = append(cat.products, simpleProduct(i, fmt.Sprintf("Simple %d", i)))
	}

	parent := catalog.Product{
		ID: 1000, Name: "Oak Board", SKU: "OAK", Type: "variable", Status: "publish",
		Price: "30.00", Categories: []catalog.Category{{ID: 2, Name: "Timber"}},
	}
	cat.products = append(cat.products, parent)
	cat.variable = []catalog.Product{parent}
	cat.variations[1000] = []catalog.Variation{
		{ID: 1001, SKU: "OAK-1M", Status: "publish", Price: "25.00",
			Attributes: []catalog.Attribute{{Name: "Length", Option: "1m"}}},
		{ID: 1002, SKU: "OAK-2M", Status: "publish", Price: "45.00",
			Attributes: []catalog.Attribute{{Name: "Length", Option: "2m"}}},
	}
	return cat
}

func TestRunCompleteImportsCatalog(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, runs, _ := testEnv(t, cat)
	ctx := context.Background()

	result, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Equal(t, model.SyncStatusCompleted, result.Status)
	assert.Equal(t, 46, result.ProductsAdded)
	assert.Equal(t, 2, result.VariationsAdded)
	assert.Empty(t, result.Errors)

	// New rows arrive with zero stock until counted by hand.
	p, err := repo.GetByExternalID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, 5, p.LowStockThreshold)
	assert.Equal(t, "Hardware", p.Category)
	assert.Equal(t, model.SourceCatalog, p.Source)

	variation, err := repo.GetByExternalID(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, variation)
	assert.Equal(t, "Oak Board - Length: 1m", variation.Title)
	assert.Equal(t, model.KindVariation, variation.Kind)
	require.NotNil(t, variation.ParentID)

	parent, err := repo.GetByID(ctx, *variation.ParentID)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, parent.ExternalID)
	assert.Equal(t, 0, parent.Stock)

	last, err := runs.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.RunStatusSuccess, last.Status)
}

func TestRunCompleteIsIdempotent(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, _, _ := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)

	second, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, second.ProductsAdded)
	assert.Zero(t, second.VariationsAdded)

	_, total, err := repo.FindAll(ctx, &dto.ListFilters{IncludeVariations: true})
	require.NoError(t, err)
	assert.Equal(t, 48, total)
}

func TestFullSyncRefreshesCatalogFieldsOnly(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, _, _ := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)

	// Hand-counted stock and storage details survive any sync.
	p, err := repo.GetByExternalID(ctx, 1)
	require.NoError(t, err)
	stock := 12
	aisle := "B4"
	require.NoError(t, repo.Update(ctx, p.ID, &dto.ProductUpdate{Stock: &stock, Aisle: &aisle}))

	cat.products[0].Name = "Renamed Simple"
	cat.products[0].Price = "99.00"

	// A quick sync leaves existing rows alone.
	_, err = engine.RunComplete(ctx, false)
	require.NoError(t, err)
	p, err = repo.GetByExternalID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Simple 1", p.Title)

	result, err := engine.RunComplete(ctx, true)
	require.NoError(t, err)
	assert.NotZero(t, result.ProductsUpdated)

	p, err = repo.GetByExternalID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Simple", p.Title)
	assert.Equal(t, 99.0, p.Price)
	assert.Equal(t, 12, p.Stock)
	require.NotNil(t, p.Aisle)
	assert.Equal(t, "B4", *p.Aisle)
}

func TestVariationParentReferenceHeals(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, _, _ := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)

	variation, err := repo.GetByExternalID(ctx, 1001)
	require.NoError(t, err)
	oldParentLocal := *variation.ParentID

	// Drop only the parent row so the next run re-creates it under a new
	// local id.
	parent, err := repo.GetByID(ctx, oldParentLocal)
	require.NoError(t, err)
	_, execErr := repo.DB.ExecContext(ctx, `DELETE FROM physical_inventory WHERE id = ?`, parent.ID)
	require.NoError(t, execErr)

	_, err = engine.RunComplete(ctx, false)
	require.NoError(t, err)

	variation, err = repo.GetByExternalID(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, variation.ParentID)
	assert.NotEqual(t, oldParentLocal, *variation.ParentID)

	newParent, err := repo.GetByID(ctx, *variation.ParentID)
	require.NoError(t, err)
	require.NotNil(t, newParent)
	assert.EqualValues(t, 1000, newParent.ExternalID)
}

func TestDeletedVariationStaysDeleted(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, _, _ := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.NoError(t, err)

	variation, err := repo.GetByExternalID(ctx, 1002)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteVariation(ctx, variation.ID, variation.ExternalID))

	_, err = engine.RunComplete(ctx, false)
	require.NoError(t, err)

	gone, err := repo.GetByExternalID(ctx, 1002)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Sibling variations are unaffected.
	kept, err := repo.GetByExternalID(ctx, 1001)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestStepByStepMatchesCompleteRun(t *testing.T) {
	cat := catalogWithPages()
	engine, repo, _, _ := testEnv(t, cat)
	ctx := context.Background()

	steps := 0
	for {
		result, err := engine.Step(ctx, false)
		require.NoError(t, err)
		steps++
		require.Less(t, steps, 50, "sync did not terminate")

		if result.Complete {
			assert.Empty(t, result.ContinuationToken)
			break
		}
		assert.NotEmpty(t, result.ContinuationToken)
	}

	// 45 simple products on 15-sized pages is 4 pages (last one short
	// ends the phase), plus one variable page.
	assert.Equal(t, 5, steps)

	_, total, err := repo.FindAll(ctx, &dto.ListFilters{IncludeVariations: true})
	require.NoError(t, err)
	assert.Equal(t, 48, total)
}

func TestStepResumesAcrossStores(t *testing.T) {
	cat := catalogWithPages()
	engine, _, _, store := testEnv(t, cat)
	ctx := context.Background()

	first, err := engine.Step(ctx, false)
	require.NoError(t, err)
	assert.False(t, first.Complete)

	saved, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusInProgress, saved.Status)
	assert.Equal(t, 2, saved.Page)
	assert.Equal(t, 15, saved.Processed)
	// 46 listed products plus the variable parent revisited in phase two.
	assert.Equal(t, 47, saved.EstimatedTotal)

	second, err := engine.Step(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 30, second.Processed)
}

func TestStaleStateStartsFresh(t *testing.T) {
	cat := catalogWithPages()
	engine, _, _, store := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.Step(ctx, false)
	require.NoError(t, err)

	saved, err := store.Get(ctx)
	require.NoError(t, err)
	saved.StartedAt = time.Now().Add(-65 * time.Minute)
	require.NoError(t, store.Save(ctx, saved))

	fresh, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, fresh.Status)
	assert.Equal(t, 1, fresh.Page)

	// A new step starts over from page one of the first phase.
	result, err := engine.Step(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 15, result.Processed)
}

func TestEmptyFirstPageFailsRun(t *testing.T) {
	cat := &fakeCatalog{variations: map[int64][]catalog.Variation{}}
	engine, _, runs, store := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.Error(t, err)

	last, lerr := runs.Last(ctx)
	require.NoError(t, lerr)
	require.NotNil(t, last)
	assert.Equal(t, model.RunStatusError, last.Status)

	// The abandoned run leaves no state behind.
	s, serr := store.Get(ctx)
	require.NoError(t, serr)
	assert.Equal(t, model.SyncStatusIdle, s.Status)
}

func TestUnreachableCatalogFailsBeforeAnyWrite(t *testing.T) {
	cat := catalogWithPages()
	cat.connectErr = fmt.Errorf("connection refused")
	engine, repo, runs, _ := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.RunComplete(ctx, false)
	require.Error(t, err)

	_, total, err := repo.FindAll(ctx, &dto.ListFilters{IncludeVariations: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	last, err := runs.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.RunStatusError, last.Status)
}

func TestConcurrentRunRejected(t *testing.T) {
	cat := catalogWithPages()
	engine, _, _, store := testEnv(t, cat)
	ctx := context.Background()

	_, err := engine.Step(ctx, false)
	require.NoError(t, err)

	// Another caller pretending to be a different run cannot take the
	// lease while the first run is in flight.
	ok, err := store.Acquire(ctx, "some-other-run")
	require.NoError(t, err)
	assert.False(t, ok)

	// The original run keeps stepping.
	_, err = engine.Step(ctx, false)
	require.NoError(t, err)
}
