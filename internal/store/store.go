package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reloop-service/internal/models"

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

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// NextSequence atomically increments and returns the named counter. Used for
// human-readable order/return numbers; safe under concurrent creation.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return value, nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsBySeller retrieves a seller's products
func (s *Store) GetProductsBySeller(ctx context.Context, sellerID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE seller_id = $1 ORDER BY id", sellerID)
	return products, err
}

// GetProductIDsBySeller retrieves the IDs of a seller's products
func (s *Store) GetProductIDsBySeller(ctx context.Context, sellerID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		"SELECT id FROM products WHERE seller_id = $1", sellerID)
	return ids, err
}

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (sku, name, description, price, category, seller_id, allow_local_warehouse)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.SKU, product.Name, product.Description, product.Price,
		product.Category, product.SellerID, product.AllowLocalWarehouse)
}

// UpdateProduct updates a product's mutable fields. SKU and seller are fixed
// at creation.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, allow_local_warehouse = $5
		WHERE id = $6`,
		product.Name, product.Description, product.Price,
		product.Category, product.AllowLocalWarehouse, product.ID)
	return err
}

// SetProductLocalWarehouse flips the local-pool opt-in flag
func (s *Store) SetProductLocalWarehouse(ctx context.Context, productID int64, allowed bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET allow_local_warehouse = $1 WHERE id = $2",
		allowed, productID)
	return err
}
