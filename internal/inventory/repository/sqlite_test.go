package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegean-labs/stockroom/internal/db"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(db.NewTestDB(t))
}

func seedProduct(t *testing.T, repo *SQLiteRepository, p *model.Product) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	return id
}

func TestCreateAndLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedProduct(t, repo, &model.Product{
		ExternalID:        101,
		Kind:              model.KindSimple,
		Title:             "Walnut Plywood 12mm",
		SKU:               "WPL-12",
		Category:          "Sheet Goods",
		Price:             42.50,
		Stock:             8,
		LowStockThreshold: 5,
		Source:            model.SourceCatalog,
	})

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Walnut Plywood 12mm", byID.Title)
	assert.False(t, byID.IsLowStock)

	byExternal, err := repo.GetByExternalID(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, byExternal)
	assert.Equal(t, id, byExternal.ID)

	bySKU, err := repo.GetBySKU(ctx, "WPL-12")
	require.NoError(t, err)
	require.NotNil(t, bySKU)
	assert.Equal(t, id, bySKU.ID)

	missing, err := repo.GetByExternalID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateComputesLowStockFlag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedProduct(t, repo, &model.Product{
		ExternalID:        102,
		Kind:              model.KindSimple,
		Title:             "Brass Hinge",
		SKU:               "BH-1",
		Stock:             3,
		LowStockThreshold: 5,
		Source:            model.SourceCatalog,
	})

	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.IsLowStock)
}

func TestPartialUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedProduct(t, repo, &model.Product{
		ExternalID:        103,
		Kind:              model.KindSimple,
		Title:             "Old Title",
		SKU:               "OT-1",
		Price:             10,
		Stock:             20,
		LowStockThreshold: 5,
		Notes:             "keep me",
		Source:            model.SourceCatalog,
	})

	title := "New Title"
	price := 12.5
	err := repo.Update(ctx, id, &dto.ProductUpdate{Title: &title, Price: &price})
	require.NoError(t, err)

	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New Title", p.Title)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, 20, p.Stock)
	assert.Equal(t, "keep me", p.Notes)
}

func TestUpdateStockRecomputesLowStock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := seedProduct(t, repo, &model.Product{
		ExternalID:        104,
		Kind:              model.KindSimple,
		Title:             "Dowel",
		SKU:               "DW-1",
		Stock:             20,
		LowStockThreshold: 5,
		Source:            model.SourceCatalog,
	})

	stock := 4
	require.NoError(t, repo.Update(ctx, id, &dto.ProductUpdate{Stock: &stock}))

	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
	assert.True(t, p.IsLowStock)

	threshold := 2
	require.NoError(t, repo.Update(ctx, id, &dto.ProductUpdate{LowStockThreshold: &threshold}))

	p, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.IsLowStock)
}

func TestDeleteVariationLeavesTombstone(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parentID := seedProduct(t, repo, &model.Product{
		ExternalID: 200,
		Kind:       model.KindVariable,
		Title:      "Oak Board",
		SKU:        "OAK",
		Source:     model.SourceCatalog,
	})

	varID := seedProduct(t, repo, &model.Product{
		ExternalID: 201,
		ParentID:   &parentID,
		Kind:       model.KindVariation,
		Title:      "Oak Board - Length: 2m",
		SKU:        "OAK-2M",
		Stock:      6,
		Source:     model.SourceCatalog,
	})

	require.NoError(t, repo.DeleteVariation(ctx, varID, 201))

	gone, err := repo.GetByID(ctx, varID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	deleted, err := repo.DeletedVariationIDs(ctx)
	require.NoError(t, err)
	assert.True(t, deleted[201])

	// Re-deleting an already tombstoned id refreshes the mark without error.
	require.NoError(t, repo.DeleteVariation(ctx, varID, 201))
}

func TestDeleteVariableRemovesChildren(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parentID := seedProduct(t, repo, &model.Product{
		ExternalID: 300,
		Kind:       model.KindVariable,
		Title:      "Pine Panel",
		SKU:        "PINE",
		Source:     model.SourceCatalog,
	})
	childID := seedProduct(t, repo, &model.Product{
		ExternalID: 301,
		ParentID:   &parentID,
		Kind:       model.KindVariation,
		Title:      "Pine Panel - Width: 60cm",
		SKU:        "PINE-60",
		Source:     model.SourceCatalog,
	})

	require.NoError(t, repo.Delete(ctx, parentID))

	for _, id := range []int64{parentID, childID} {
		p, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, p)
	}
}

func TestFindAllFiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parentID := seedProduct(t, repo, &model.Product{
		ExternalID: 400, Kind: model.KindVariable, Title: "A Variable", SKU: "AV", Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 401, ParentID: &parentID, Kind: model.KindVariation,
		Title: "A Variable - Size: S", SKU: "AV-S", Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 402, Kind: model.KindSimple, Title: "B Simple", SKU: "BS",
		Stock: 2, LowStockThreshold: 5, Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 403, Kind: model.KindSimple, Title: "C Simple", SKU: "CS",
		Stock: 50, LowStockThreshold: 5, Source: model.SourceCatalog,
	})

	products, total, err := repo.FindAll(ctx, &dto.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, products, 3)
	assert.Equal(t, "A Variable", products[0].Title)

	products, total, err = repo.FindAll(ctx, &dto.ListFilters{IncludeVariations: true})
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	products, total, err = repo.FindAll(ctx, &dto.ListFilters{LowStockOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "B Simple", products[0].Title)

	products, total, err = repo.FindAll(ctx, &dto.ListFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, products, 1)
}

func TestSearchMatchesTitleSKUAndLocation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	aisle := "A3"
	seedProduct(t, repo, &model.Product{
		ExternalID: 500, Kind: model.KindSimple, Title: "Teak Oil", SKU: "TO-1",
		Aisle: &aisle, Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 501, Kind: model.KindSimple, Title: "Wood Glue", SKU: "WG-1",
		Source: model.SourceCatalog,
	})

	byTitle, err := repo.Search(ctx, "Teak", 10)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Teak Oil", byTitle[0].Title)

	byAisle, err := repo.Search(ctx, "A3", 10)
	require.NoError(t, err)
	assert.Len(t, byAisle, 1)

	none, err := repo.Search(ctx, "nothing-here", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMaxExternalID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	max, err := repo.MaxExternalID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, max)

	seedProduct(t, repo, &model.Product{
		ExternalID: 100042, Kind: model.KindSimple, Title: "X", SKU: "X-1", Source: model.SourceFeed,
	})

	max, err = repo.MaxExternalID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 100042, max)
}

func TestEffectiveStockSumsVariations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parentID := seedProduct(t, repo, &model.Product{
		ExternalID: 600, Kind: model.KindVariable, Title: "Screws", SKU: "SCR", Source: model.SourceCatalog,
	})
	for i, stock := range []int{3, 7} {
		seedProduct(t, repo, &model.Product{
			ExternalID: int64(601 + i), ParentID: &parentID, Kind: model.KindVariation,
			Title: "Screws - Box", SKU: "SCR-B", Stock: stock, Source: model.SourceCatalog,
		})
	}

	total, err := repo.EffectiveStock(ctx, parentID)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedProduct(t, repo, &model.Product{
		ExternalID: 700, Kind: model.KindSimple, Title: "Healthy", SKU: "H-1",
		Price: 10, WholesalePrice: 6, Stock: 10, LowStockThreshold: 5, Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 701, Kind: model.KindSimple, Title: "Low", SKU: "L-1",
		Price: 20, WholesalePrice: 12, Stock: 2, LowStockThreshold: 5, Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 702, Kind: model.KindSimple, Title: "Empty", SKU: "E-1",
		Price: 5, WholesalePrice: 3, Stock: 0, LowStockThreshold: 5, Source: model.SourceCatalog,
	})

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 1, stats.InStock)
	assert.Equal(t, 1, stats.LowStock)
	assert.Equal(t, 1, stats.OutOfStock)
	assert.InDelta(t, 10*10.0+20*2.0, stats.RetailValue, 0.001)
	assert.InDelta(t, 6*10.0+12*2.0, stats.WholesaleValue, 0.001)
}

func TestRecentlyUpdatedOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := seedProduct(t, repo, &model.Product{
		ExternalID: 800, Kind: model.KindSimple, Title: "First", SKU: "F-1", Source: model.SourceCatalog,
	})
	seedProduct(t, repo, &model.Product{
		ExternalID: 801, Kind: model.KindSimple, Title: "Second", SKU: "S-1", Source: model.SourceCatalog,
	})

	time.Sleep(5 * time.Millisecond)
	notes := "touched"
	require.NoError(t, repo.Update(ctx, first, &dto.ProductUpdate{Notes: &notes}))

	recent, err := repo.RecentlyUpdated(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "First", recent[0].Title)
}
