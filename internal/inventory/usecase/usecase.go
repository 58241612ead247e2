package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/inventory"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
	"github.com/aegean-labs/stockroom/internal/search"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	es     *search.Client
	logger *zap.Logger
}

func NewInventoryUseCase(repo inventory.Repository, es *search.Client, log *zap.Logger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		es:     es,
		logger: log,
	}
}

func (uc *inventoryUseCase) Get(ctx context.Context, id int64) (*model.Product, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *inventoryUseCase) GetByExternalID(ctx context.Context, externalID int64) (*model.Product, error) {
	return uc.repo.GetByExternalID(ctx, externalID)
}

func (uc *inventoryUseCase) List(ctx context.Context, filters *dto.ListFilters) ([]model.Product, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

// Search prefers the Elasticsearch index and falls back to a LIKE scan
// of the local store when the index is unavailable or unconfigured.
func (uc *inventoryUseCase) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 50
	}

	if uc.es != nil {
		products, err := uc.es.Search(ctx, term, limit)
		if err == nil {
			return products, nil
		}
		uc.logger.Warn("index search failed, falling back to local store",
			zap.String("term", term), zap.Error(err))
	}

	return uc.repo.Search(ctx, term, limit)
}

func (uc *inventoryUseCase) Variations(ctx context.Context, parentID int64) ([]model.Product, error) {
	return uc.repo.VariationsOf(ctx, parentID)
}

func (uc *inventoryUseCase) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.repo.LowStock(ctx, limit)
}

func (uc *inventoryUseCase) RecentlyUpdated(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.repo.RecentlyUpdated(ctx, limit)
}

func (uc *inventoryUseCase) Stats(ctx context.Context) (*model.Stats, error) {
	return uc.repo.Stats(ctx)
}

func (uc *inventoryUseCase) UpdateStock(ctx context.Context, id int64, stock int) (*model.Product, error) {
	if stock < 0 {
		return nil, fmt.Errorf("stock cannot be negative")
	}

	p, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d not found", id)
	}
	if p.Kind == model.KindVariable {
		return nil, fmt.Errorf("stock of a variable product is derived from its variations")
	}

	if err := uc.repo.Update(ctx, id, &dto.ProductUpdate{Stock: &stock}); err != nil {
		return nil, err
	}

	updated, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	go uc.syncToIndex(context.Background(), updated)
	return updated, nil
}

// AdjustStockByExternalID applies a signed delta, clamping at zero. Used
// by the order listener, which only knows remote catalog ids.
func (uc *inventoryUseCase) AdjustStockByExternalID(ctx context.Context, externalID int64, delta int) (*model.Product, error) {
	p, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no product with external id %d", externalID)
	}

	stock := p.Stock + delta
	if stock < 0 {
		stock = 0
	}

	if err := uc.repo.Update(ctx, p.ID, &dto.ProductUpdate{Stock: &stock}); err != nil {
		return nil, err
	}

	updated, err := uc.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	go uc.syncToIndex(context.Background(), updated)
	return updated, nil
}

func (uc *inventoryUseCase) UpdateDetails(ctx context.Context, id int64, upd *dto.ProductUpdate) (*model.Product, error) {
	p, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d not found", id)
	}

	if err := uc.repo.Update(ctx, id, upd); err != nil {
		return nil, err
	}

	updated, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	go uc.syncToIndex(context.Background(), updated)
	return updated, nil
}

func (uc *inventoryUseCase) DeleteVariation(ctx context.Context, id int64) error {
	p, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("product %d not found", id)
	}
	if p.Kind != model.KindVariation {
		return fmt.Errorf("product %d is not a variation", id)
	}

	if err := uc.repo.DeleteVariation(ctx, id, p.ExternalID); err != nil {
		return err
	}

	if uc.es != nil {
		go func() {
			if err := uc.es.DeleteProduct(context.Background(), id); err != nil {
				uc.logger.Warn("failed to drop variation from index",
					zap.Int64("id", id), zap.Error(err))
			}
		}()
	}
	return nil
}

func (uc *inventoryUseCase) syncToIndex(ctx context.Context, p *model.Product) {
	if uc.es == nil || p == nil {
		return
	}
	if err := uc.es.IndexProduct(ctx, p); err != nil {
		uc.logger.Warn("failed to index product",
			zap.Int64("id", p.ID), zap.Error(err))
	}
}
