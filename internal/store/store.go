package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProductByCode retrieves a product by its code
func (s *Store) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, apperr.NewNotFoundError("product", code)
	}
	if err != nil {
		return nil, apperr.NewStoreError("failed to fetch product", err)
	}
	return &product, nil
}

// ListProducts retrieves all products sorted by name
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY name")
	if err != nil {
		return nil, apperr.NewStoreError("failed to list products", err)
	}
	return products, nil
}

// CreateProduct inserts a new catalog record
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (code, name, price, stock, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		p.Code, p.Name, p.Price, p.Stock, p.Image).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperr.NewStoreError("failed to create product", err)
	}
	return nil
}

// DeleteProduct removes a catalog record by code
func (s *Store) DeleteProduct(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE code = $1", code)
	if err != nil {
		return apperr.NewStoreError("failed to delete product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NewNotFoundError("product", code)
	}
	return nil
}

// AdjustStock applies stock += delta as a single conditional atomic
// statement. The WHERE guard makes the read-and-apply indivisible at the
// store, so two concurrent decrements can never jointly drive stock
// negative. Returns the new stock value on success.
func (s *Store) AdjustStock(ctx context.Context, code string, delta int) (int, error) {
	var stock int
	query := `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE code = $2 AND stock + $1 >= 0
		RETURNING stock`

	err := s.db.GetContext(ctx, &stock, query, delta, code)
	if err == sql.ErrNoRows {
		// Either the product is missing or the guard rejected the
		// delta. Disambiguate with a read so callers can tell
		// not-found from insufficient stock.
		var exists bool
		if probeErr := s.db.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM products WHERE code = $1)", code); probeErr != nil {
			return 0, apperr.NewStoreError("failed to probe product", probeErr)
		}
		if !exists {
			return 0, apperr.NewNotFoundError("product", code)
		}
		return 0, apperr.NewConflictError("insufficient stock for product %s", code)
	}
	if err != nil {
		return 0, apperr.NewStoreError("failed to adjust stock", err)
	}
	return stock, nil
}

// GetAdmins retrieves all admin records
func (s *Store) GetAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY id")
	if err != nil {
		return nil, apperr.NewStoreError("failed to list admins", err)
	}
	return admins, nil
}

// CreateAdmin inserts an admin passcode record
func (s *Store) CreateAdmin(ctx context.Context, passcodeHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (passcode_hash) VALUES ($1)", passcodeHash)
	if err != nil {
		return apperr.NewStoreError("failed to create admin", err)
	}
	return nil
}

// UpdateAdminPasscode replaces an admin's passcode hash
func (s *Store) UpdateAdminPasscode(ctx context.Context, id int64, passcodeHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE admins SET passcode_hash = $1, updated_at = NOW() WHERE id = $2",
		passcodeHash, id)
	if err != nil {
		return apperr.NewStoreError("failed to update admin passcode", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NewNotFoundError("admin", fmt.Sprintf("%d", id))
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
