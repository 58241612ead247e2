package inventory

import (
	"context"

	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
)

// Repository is the canonical persistent product collection. Lookups return
// (nil, nil) when no record matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByExternalID(ctx context.Context, externalID int64) (*model.Product, error)
	GetBySKU(ctx context.Context, sku string) (*model.Product, error)

	Create(ctx context.Context, p *model.Product) (int64, error)
	Update(ctx context.Context, id int64, upd *dto.ProductUpdate) error
	Delete(ctx context.Context, id int64) error

	// DeleteVariation tombstones the variation's external id and removes
	// the row in a single transaction, so a later sync never re-creates it.
	DeleteVariation(ctx context.Context, id, externalID int64) error
	DeletedVariationIDs(ctx context.Context) (map[int64]bool, error)

	FindAll(ctx context.Context, filters *dto.ListFilters) ([]model.Product, int, error)
	Search(ctx context.Context, term string, limit int) ([]model.Product, error)
	LowStock(ctx context.Context, limit int) ([]model.Product, error)
	RecentlyUpdated(ctx context.Context, limit int) ([]model.Product, error)
	VariationsOf(ctx context.Context, parentID int64) ([]model.Product, error)

	// MaxExternalID seeds the synthetic id counter for feed-only inserts.
	MaxExternalID(ctx context.Context) (int64, error)
	EffectiveStock(ctx context.Context, parentID int64) (int, error)
	Stats(ctx context.Context) (*model.Stats, error)
}
