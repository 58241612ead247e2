package feed

import (
	"context"
	"time"
)

// Item is one supplier feed row after field mapping. Price is the
// supplier's price, which lands in the wholesale column locally.
type Item struct {
	SKU      string
	Title    string
	Price    float64
	Category string
	Stock    int
	ImageURL string
}

// Options controls how an import treats rows whose SKU already exists
// locally. Catalog-owned rows are always left alone regardless.
type Options struct {
	UpdateExisting bool
}

// Summary is the outcome of one feed import run.
type Summary struct {
	Status    string        `json:"status"`
	Processed int           `json:"processed"`
	Imported  int           `json:"imported"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Skips     []string      `json:"skips,omitempty"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// ProbeResult reports what a dry-run parse of a feed URL found.
type ProbeResult struct {
	ItemCount int    `json:"item_count"`
	Container string `json:"container"`
	Sample    []Item `json:"sample"`
}

type UseCase interface {
	TestURL(ctx context.Context, url string) (*ProbeResult, error)
	Import(ctx context.Context, url string, opts *Options) (*Summary, error)
}
