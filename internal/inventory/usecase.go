package inventory

import (
	"context"

	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
)

// UseCase is the inventory business logic surface used by handlers and
// the order listener.
type UseCase interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	GetByExternalID(ctx context.Context, externalID int64) (*model.Product, error)
	List(ctx context.Context, filters *dto.ListFilters) ([]model.Product, int, error)
	Search(ctx context.Context, term string, limit int) ([]model.Product, error)
	Variations(ctx context.Context, parentID int64) ([]model.Product, error)
	LowStock(ctx context.Context, limit int) ([]model.Product, error)
	RecentlyUpdated(ctx context.Context, limit int) ([]model.Product, error)
	Stats(ctx context.Context) (*model.Stats, error)

	UpdateStock(ctx context.Context, id int64, stock int) (*model.Product, error)
	AdjustStockByExternalID(ctx context.Context, externalID int64, delta int) (*model.Product, error)
	UpdateDetails(ctx context.Context, id int64, upd *dto.ProductUpdate) (*model.Product, error)
	DeleteVariation(ctx context.Context, id int64) error
}
