package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowline/commerce/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, price, category, stock, sold_count,
		image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, category, stock, sold_count,
		image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price, category, stock, sold_count,
		image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM products WHERE id = ANY($1)`

	lockProductsByIDsSQL = `SELECT id, name, price, category, stock, sold_count,
		image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	adjustStockSQL = `UPDATE products
		SET stock = stock + $2, sold_count = sold_count + $3
		WHERE id = $1 AND stock + $2 >= 0`
)

var _ catalog.Store = (*ProductRepository)(nil)

// ProductRepository implements catalog.Store backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// LockByIDs fetches the given products with their rows locked for the
// duration of tx. The query orders by ID so concurrent callers always
// acquire locks in the same sequence.
func (r *ProductRepository) LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]catalog.Product, error) {
	rows, err := tx.Query(ctx, lockProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// AdjustStock applies stockDelta and soldDelta to a product's counters
// within tx. The UPDATE refuses to drive stock below zero; a zero-row
// result means either the product vanished or the guard fired.
func (r *ProductRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id string, stockDelta, soldDelta int) error {
	tag, err := tx.Exec(ctx, adjustStockSQL, id, stockDelta, soldDelta)
	if err != nil {
		return fmt.Errorf("adjusting stock for product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjusting stock for product %q: %w", id, catalog.ErrNotFound)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &price, &p.Category, &p.Stock, &p.SoldCount,
		&p.Image.Thumbnail, &p.Image.Mobile, &p.Image.Tablet, &p.Image.Desktop,
	)
	p.Price = price
	return p, err
}
