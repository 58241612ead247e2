package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS physical_inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id INTEGER NOT NULL UNIQUE,
		parent_id INTEGER REFERENCES physical_inventory(id),
		kind TEXT NOT NULL DEFAULT 'simple',
		variation_attributes TEXT,
		title TEXT NOT NULL,
		sku TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		wholesale_price REAL NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		is_low_stock INTEGER NOT NULL DEFAULT 0,
		low_stock_threshold INTEGER NOT NULL DEFAULT 5,
		notes TEXT NOT NULL DEFAULT '',
		aisle TEXT,
		shelf TEXT,
		storage_notes TEXT,
		date_of_entry TIMESTAMP,
		source TEXT NOT NULL DEFAULT 'catalog',
		created_at TIMESTAMP NOT NULL,
		last_updated TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_sku ON physical_inventory(sku)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_parent ON physical_inventory(parent_id)`,
	`CREATE TABLE IF NOT EXISTS sync_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sync_date TIMESTAMP NOT NULL,
		products_added INTEGER NOT NULL DEFAULT 0,
		products_updated INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS deleted_variations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		variation_id INTEGER NOT NULL UNIQUE,
		deleted_at TIMESTAMP NOT NULL
	)`,
}

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
