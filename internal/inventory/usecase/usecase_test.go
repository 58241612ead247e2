package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/db"
	"github.com/aegean-labs/stockroom/internal/inventory"
	"github.com/aegean-labs/stockroom/internal/inventory/repository"
	"github.com/aegean-labs/stockroom/internal/model"
)

func testUseCase(t *testing.T) (inventory.UseCase, *repository.SQLiteRepository) {
	t.Helper()
	repo := repository.NewSQLiteRepository(db.NewTestDB(t))
	return NewInventoryUseCase(repo, nil, zap.NewNop()), repo
}

func TestUpdateStock(t *testing.T) {
	uc, repo := testUseCase(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &model.Product{
		ExternalID: 1, Kind: model.KindSimple, Title: "Chisel", SKU: "CH-1",
		Stock: 5, LowStockThreshold: 3, Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	p, err := uc.UpdateStock(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
	assert.True(t, p.IsLowStock)

	_, err = uc.UpdateStock(ctx, id, -1)
	assert.Error(t, err)

	_, err = uc.UpdateStock(ctx, 9999, 5)
	assert.Error(t, err)
}

func TestUpdateStockRejectsVariableParents(t *testing.T) {
	uc, repo := testUseCase(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &model.Product{
		ExternalID: 2, Kind: model.KindVariable, Title: "Boards", SKU: "BRD",
		Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	_, err = uc.UpdateStock(ctx, id, 10)
	assert.Error(t, err)
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	uc, repo := testUseCase(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Product{
		ExternalID: 3, Kind: model.KindSimple, Title: "Nails", SKU: "NL-1",
		Stock: 2, LowStockThreshold: 5, Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	p, err := uc.AdjustStockByExternalID(ctx, 3, -5)
	require.NoError(t, err)
	assert.Zero(t, p.Stock)

	p, err = uc.AdjustStockByExternalID(ctx, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	_, err = uc.AdjustStockByExternalID(ctx, 12345, -1)
	assert.Error(t, err)
}

func TestDeleteVariationGuards(t *testing.T) {
	uc, repo := testUseCase(t)
	ctx := context.Background()

	simpleID, err := repo.Create(ctx, &model.Product{
		ExternalID: 4, Kind: model.KindSimple, Title: "Hammer", SKU: "HM-1",
		Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	assert.Error(t, uc.DeleteVariation(ctx, simpleID))
	assert.Error(t, uc.DeleteVariation(ctx, 9999))

	parentID, err := repo.Create(ctx, &model.Product{
		ExternalID: 5, Kind: model.KindVariable, Title: "Rope", SKU: "RP",
		Source: model.SourceCatalog,
	})
	require.NoError(t, err)
	varID, err := repo.Create(ctx, &model.Product{
		ExternalID: 6, ParentID: &parentID, Kind: model.KindVariation,
		Title: "Rope - Length: 10m", SKU: "RP-10", Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteVariation(ctx, varID))

	deleted, err := repo.DeletedVariationIDs(ctx)
	require.NoError(t, err)
	assert.True(t, deleted[6])
}

func TestSearchFallsBackWithoutIndex(t *testing.T) {
	uc, repo := testUseCase(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Product{
		ExternalID: 7, Kind: model.KindSimple, Title: "Spirit Level", SKU: "SL-1",
		Source: model.SourceCatalog,
	})
	require.NoError(t, err)

	results, err := uc.Search(ctx, "Spirit", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Spirit Level", results[0].Title)
}
