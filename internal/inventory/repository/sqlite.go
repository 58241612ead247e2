package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
)

type SQLiteRepository struct {
	DB *sqlx.DB
}

func NewSQLiteRepository(conn *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{DB: conn}
}

const productColumns = `id, external_id, parent_id, kind, variation_attributes, title, sku,
	category, price, wholesale_price, stock, image_url, is_low_stock, low_stock_threshold,
	notes, aisle, shelf, storage_notes, date_of_entry, source, created_at, last_updated`

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM physical_inventory WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByExternalID(ctx context.Context, externalID int64) (*model.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM physical_inventory WHERE external_id = ?`, externalID)
}

func (r *SQLiteRepository) GetBySKU(ctx context.Context, sku string) (*model.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM physical_inventory WHERE sku = ? LIMIT 1`, sku)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Product, error) {
	var p model.Product
	err := r.DB.GetContext(ctx, &p, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p *model.Product) (int64, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.LastUpdated = now
	p.IsLowStock = p.Stock <= p.LowStockThreshold

	query := `
		INSERT INTO physical_inventory (
			external_id, parent_id, kind, variation_attributes, title, sku,
			category, price, wholesale_price, stock, image_url, is_low_stock,
			low_stock_threshold, notes, aisle, shelf, storage_notes,
			date_of_entry, source, created_at, last_updated
		)
		VALUES (
			:external_id, :parent_id, :kind, :variation_attributes, :title, :sku,
			:category, :price, :wholesale_price, :stock, :image_url, :is_low_stock,
			:low_stock_threshold, :notes, :aisle, :shelf, :storage_notes,
			:date_of_entry, :source, :created_at, :last_updated
		)
	`
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return 0, fmt.Errorf("inserting product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting product id: %w", err)
	}
	p.ID = id
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, upd *dto.ProductUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	sets := []string{}
	args := []interface{}{}

	add := func(clause string, value interface{}) {
		sets = append(sets, clause)
		args = append(args, value)
	}

	if upd.Title != nil {
		add("title = ?", *upd.Title)
	}
	if upd.SKU != nil {
		add("sku = ?", *upd.SKU)
	}
	if upd.Category != nil {
		add("category = ?", *upd.Category)
	}
	if upd.Price != nil {
		add("price = ?", *upd.Price)
	}
	if upd.WholesalePrice != nil {
		add("wholesale_price = ?", *upd.WholesalePrice)
	}
	if upd.ImageURL != nil {
		add("image_url = ?", *upd.ImageURL)
	}
	if upd.Notes != nil {
		add("notes = ?", *upd.Notes)
	}
	if upd.ParentID != nil {
		add("parent_id = ?", *upd.ParentID)
	}
	if upd.VariationAttrs != nil {
		add("variation_attributes = ?", *upd.VariationAttrs)
	}
	if upd.Aisle != nil {
		add("aisle = ?", *upd.Aisle)
	}
	if upd.Shelf != nil {
		add("shelf = ?", *upd.Shelf)
	}
	if upd.StorageNotes != nil {
		add("storage_notes = ?", *upd.StorageNotes)
	}
	if upd.DateOfEntry != nil {
		add("date_of_entry = ?", *upd.DateOfEntry)
	}

	// Stock or threshold changes need the current row to recompute the
	// derived low-stock flag.
	if upd.Stock != nil || upd.LowStockThreshold != nil {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("product %d not found", id)
		}

		stock := current.Stock
		threshold := current.LowStockThreshold
		if upd.Stock != nil {
			stock = *upd.Stock
			add("stock = ?", stock)
		}
		if upd.LowStockThreshold != nil {
			threshold = *upd.LowStockThreshold
			add("low_stock_threshold = ?", threshold)
		}
		add("is_low_stock = ?", stock <= threshold)
	}

	add("last_updated = ?", time.Now())
	args = append(args, id)

	query := "UPDATE physical_inventory SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating product %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	if p.Kind == model.KindVariable {
		if _, err := r.DB.ExecContext(ctx, `DELETE FROM physical_inventory WHERE parent_id = ?`, id); err != nil {
			return fmt.Errorf("deleting variations of %d: %w", id, err)
		}
	}

	if _, err := r.DB.ExecContext(ctx, `DELETE FROM physical_inventory WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteVariation(ctx context.Context, id, externalID int64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deleted_variations (variation_id, deleted_at) VALUES (?, ?)
		ON CONFLICT(variation_id) DO UPDATE SET deleted_at = excluded.deleted_at
	`, externalID, time.Now())
	if err != nil {
		return fmt.Errorf("marking variation %d deleted: %w", externalID, err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM physical_inventory WHERE id = ? AND kind = ?`, id, model.KindVariation)
	if err != nil {
		return fmt.Errorf("deleting variation %d: %w", id, err)
	}

	return tx.Commit()
}

func (r *SQLiteRepository) DeletedVariationIDs(ctx context.Context) (map[int64]bool, error) {
	var ids []int64
	if err := r.DB.SelectContext(ctx, &ids, `SELECT variation_id FROM deleted_variations`); err != nil {
		return nil, err
	}

	deleted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		deleted[id] = true
	}
	return deleted, nil
}

func (r *SQLiteRepository) FindAll(ctx context.Context, f *dto.ListFilters) ([]model.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if !f.IncludeVariations {
		conditions = append(conditions, "kind IN (?, ?)")
		args = append(args, model.KindSimple, model.KindVariable)
	}
	if f.LowStockOnly {
		conditions = append(conditions, "is_low_stock = 1 AND stock > 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, "SELECT COUNT(*) FROM physical_inventory"+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM physical_inventory` + where + ` ORDER BY title ASC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	var products []model.Product
	if err := r.DB.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *SQLiteRepository) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	like := "%" + term + "%"
	var products []model.Product
	err := r.DB.SelectContext(ctx, &products, `
		SELECT `+productColumns+` FROM physical_inventory
		WHERE (title LIKE ? OR sku LIKE ? OR aisle LIKE ? OR shelf LIKE ?)
		AND kind IN (?, ?)
		ORDER BY title ASC LIMIT ?
	`, like, like, like, like, model.KindSimple, model.KindVariable, limit)
	return products, err
}

func (r *SQLiteRepository) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.DB.SelectContext(ctx, &products, `
		SELECT `+productColumns+` FROM physical_inventory
		WHERE is_low_stock = 1 AND stock > 0
		ORDER BY stock ASC LIMIT ?
	`, limit)
	return products, err
}

func (r *SQLiteRepository) RecentlyUpdated(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.DB.SelectContext(ctx, &products, `
		SELECT `+productColumns+` FROM physical_inventory
		WHERE kind IN (?, ?)
		ORDER BY last_updated DESC LIMIT ?
	`, model.KindSimple, model.KindVariable, limit)
	return products, err
}

func (r *SQLiteRepository) VariationsOf(ctx context.Context, parentID int64) ([]model.Product, error) {
	var products []model.Product
	err := r.DB.SelectContext(ctx, &products, `
		SELECT `+productColumns+` FROM physical_inventory
		WHERE parent_id = ? AND kind = ?
		ORDER BY title ASC
	`, parentID, model.KindVariation)
	return products, err
}

func (r *SQLiteRepository) MaxExternalID(ctx context.Context) (int64, error) {
	var max int64
	err := r.DB.GetContext(ctx, &max, `SELECT COALESCE(MAX(external_id), 0) FROM physical_inventory`)
	return max, err
}

// EffectiveStock sums variation stock for a variable product; the parent's
// own stock column is always 0.
func (r *SQLiteRepository) EffectiveStock(ctx context.Context, parentID int64) (int, error) {
	var total int
	err := r.DB.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(stock), 0) FROM physical_inventory WHERE parent_id = ?
	`, parentID)
	return total, err
}

func (r *SQLiteRepository) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	err := r.DB.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_products,
			COALESCE(SUM(CASE WHEN is_low_stock = 0 AND stock > 0 THEN 1 ELSE 0 END), 0) AS in_stock,
			COALESCE(SUM(CASE WHEN is_low_stock = 1 AND stock > 0 THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN stock = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
			COALESCE(SUM(price * stock), 0) AS retail_value,
			COALESCE(SUM(wholesale_price * stock), 0) AS wholesale_value
		FROM physical_inventory
	`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
