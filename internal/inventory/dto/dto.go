package dto

import (
	"time"

	"github.com/aegean-labs/stockroom/internal/model"
)

// ProductUpdate is a partial update: only non-nil fields are written.
// Stock and threshold changes recompute the derived low-stock flag.
type ProductUpdate struct {
	Title             *string
	SKU               *string
	Category          *string
	Price             *float64
	WholesalePrice    *float64
	ImageURL          *string
	Stock             *int
	LowStockThreshold *int
	Notes             *string
	ParentID          *int64
	VariationAttrs    *model.AttributeList
	Aisle             *string
	Shelf             *string
	StorageNotes      *string
	DateOfEntry       *time.Time
}

// IsEmpty reports whether the update would write nothing.
func (u *ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.SKU == nil && u.Category == nil &&
		u.Price == nil && u.WholesalePrice == nil && u.ImageURL == nil &&
		u.Stock == nil && u.LowStockThreshold == nil && u.Notes == nil &&
		u.ParentID == nil && u.VariationAttrs == nil &&
		u.Aisle == nil && u.Shelf == nil && u.StorageNotes == nil &&
		u.DateOfEntry == nil
}

// ListFilters selects products for the listing endpoints. Variations are
// excluded unless IncludeVariations is set.
type ListFilters struct {
	IncludeVariations bool
	LowStockOnly      bool
	Page              int
	PageSize          int
}
