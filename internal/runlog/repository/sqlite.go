package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aegean-labs/stockroom/internal/model"
)

type SQLiteRepository struct {
	DB *sqlx.DB
}

func NewSQLiteRepository(conn *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{DB: conn}
}

func (r *SQLiteRepository) Append(ctx context.Context, entry *model.RunLogEntry) error {
	if entry.SyncDate.IsZero() {
		entry.SyncDate = time.Now()
	}

	res, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO sync_log (sync_date, products_added, products_updated, status, details)
		VALUES (:sync_date, :products_added, :products_updated, :status, :details)
	`, entry)
	if err != nil {
		return fmt.Errorf("appending run log entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]model.RunLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var entries []model.RunLogEntry
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT id, sync_date, products_added, products_updated, status, details
		FROM sync_log ORDER BY sync_date DESC, id DESC LIMIT ?
	`, limit)
	return entries, err
}

func (r *SQLiteRepository) Last(ctx context.Context) (*model.RunLogEntry, error) {
	var entry model.RunLogEntry
	err := r.DB.GetContext(ctx, &entry, `
		SELECT id, sync_date, products_added, products_updated, status, details
		FROM sync_log ORDER BY sync_date DESC, id DESC LIMIT 1
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
