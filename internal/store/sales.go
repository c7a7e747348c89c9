package store

import (
	"context"
	"database/sql"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/google/uuid"
)

// saleItemRow carries the sale_id alongside the line fields for the
// window queries that join across sales.
type saleItemRow struct {
	SaleID string `db:"sale_id"`
	models.SaleItem
}

// CreateSale persists the sale aggregate (header plus lines, line order
// preserved via position). The aggregate is one record from the saga's
// point of view: it either exists whole or not at all. Cross-product
// stock atomicity is NOT provided here; that is the committer's saga.
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.NewStoreError("failed to begin sale insert", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		"INSERT INTO sales (id, grand_total) VALUES ($1, $2) RETURNING created_at",
		sale.ID, sale.GrandTotal).Scan(&sale.CreatedAt)
	if err != nil {
		return apperr.NewStoreError("failed to insert sale", err)
	}

	for i, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, code, name, price, quantity, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, i, item.Code, item.Name, item.Price, item.Quantity, item.Total)
		if err != nil {
			return apperr.NewStoreError("failed to insert sale item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewStoreError("failed to commit sale insert", err)
	}
	return nil
}

// DeleteSale removes a provisional sale record (compensating delete).
// sale_items cascade with the header row.
func (s *Store) DeleteSale(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", id)
	if err != nil {
		return apperr.NewStoreError("failed to delete sale", err)
	}
	return nil
}

// GetSaleByID retrieves a sale with its lines in receipt order
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale,
		"SELECT id, grand_total, created_at FROM sales WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFoundError("sale", id)
	}
	if err != nil {
		return nil, apperr.NewStoreError("failed to fetch sale", err)
	}

	err = s.db.SelectContext(ctx, &sale.Items, `
		SELECT code, name, price, quantity, total
		FROM sale_items WHERE sale_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, apperr.NewStoreError("failed to fetch sale items", err)
	}
	return &sale, nil
}

// GetSalesBetween retrieves all sales with created_at in [from, to),
// lines attached in receipt order. Used by the reporting windows.
func (s *Store) GetSalesBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales, `
		SELECT id, grand_total, created_at
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, from, to)
	if err != nil {
		return nil, apperr.NewStoreError("failed to fetch sales window", err)
	}
	if len(sales) == 0 {
		return sales, nil
	}

	var rows []saleItemRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT si.sale_id, si.code, si.name, si.price, si.quantity, si.total
		FROM sale_items si
		JOIN sales sa ON sa.id = si.sale_id
		WHERE sa.created_at >= $1 AND sa.created_at < $2
		ORDER BY sa.created_at, si.position`, from, to)
	if err != nil {
		return nil, apperr.NewStoreError("failed to fetch sale items window", err)
	}

	bySale := make(map[string][]models.SaleItem, len(sales))
	for _, row := range rows {
		bySale[row.SaleID] = append(bySale[row.SaleID], row.SaleItem)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
	}
	return sales, nil
}
