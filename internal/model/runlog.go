package model

import "time"

// Run log statuses.
const (
	RunStatusSuccess        = "success"
	RunStatusPartialSuccess = "partial_success"
	RunStatusError          = "error"
)

// RunLogEntry is one append-only audit record per sync or import run.
type RunLogEntry struct {
	ID              int64     `db:"id" json:"id"`
	SyncDate        time.Time `db:"sync_date" json:"sync_date"`
	ProductsAdded   int       `db:"products_added" json:"products_added"`
	ProductsUpdated int       `db:"products_updated" json:"products_updated"`
	Status          string    `db:"status" json:"status"`
	Details         string    `db:"details" json:"details"`
}
