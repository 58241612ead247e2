package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product kinds mirror the remote catalog's product types.
const (
	KindSimple    = "simple"
	KindVariable  = "variable"
	KindVariation = "variation"
)

// Record provenance. Catalog-sourced records are authoritative; feed-sourced
// records may never shadow or overwrite them.
const (
	SourceCatalog = "catalog"
	SourceFeed    = "feed"
)

type Product struct {
	ID         int64  `db:"id" json:"id"`
	ExternalID int64  `db:"external_id" json:"external_id"`
	ParentID   *int64 `db:"parent_id" json:"parent_id"`
	Kind       string `db:"kind" json:"kind"`
	// Ordered name/option pairs, present only for kind=variation.
	VariationAttrs    AttributeList `db:"variation_attributes" json:"variation_attributes"`
	Title             string        `db:"title" json:"title"`
	SKU               string        `db:"sku" json:"sku"`
	Category          string        `db:"category" json:"category"`
	Price             float64       `db:"price" json:"price"`
	WholesalePrice    float64       `db:"wholesale_price" json:"wholesale_price"`
	Stock             int           `db:"stock" json:"stock"`
	ImageURL          string        `db:"image_url" json:"image_url"`
	IsLowStock        bool          `db:"is_low_stock" json:"is_low_stock"`
	LowStockThreshold int           `db:"low_stock_threshold" json:"low_stock_threshold"`
	Notes             string        `db:"notes" json:"notes"`
	Aisle             *string       `db:"aisle" json:"aisle"`
	Shelf             *string       `db:"shelf" json:"shelf"`
	StorageNotes      *string       `db:"storage_notes" json:"storage_notes"`
	DateOfEntry       *time.Time    `db:"date_of_entry" json:"date_of_entry"`
	Source            string        `db:"source" json:"source"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	LastUpdated       time.Time     `db:"last_updated" json:"last_updated"`
}

// Attribute is a single variation dimension, e.g. {Name: "Size", Option: "13mm"}.
type Attribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// AttributeList stores variation attributes as a JSON column.
type AttributeList []Attribute

func (a AttributeList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *AttributeList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported variation_attributes type %T", src)
	}
}

// Stats is the dashboard aggregate over the whole inventory.
type Stats struct {
	TotalProducts  int     `db:"total_products" json:"total_products"`
	InStock        int     `db:"in_stock" json:"in_stock"`
	LowStock       int     `db:"low_stock" json:"low_stock"`
	OutOfStock     int     `db:"out_of_stock" json:"out_of_stock"`
	RetailValue    float64 `db:"retail_value" json:"retail_value"`
	WholesaleValue float64 `db:"wholesale_value" json:"wholesale_value"`
}
