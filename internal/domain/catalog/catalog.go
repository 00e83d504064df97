package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// InsufficientStockError indicates a product does not have enough stock to
// cover a requested quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Category  string
	Stock     int
	SoldCount int
	Image     Image
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Store extends Repository with the transactional stock operations used by
// order creation and cancellation. Rows are locked in a stable order so two
// concurrent orders over the same products cannot deadlock.
type Store interface {
	Repository

	// LockByIDs fetches the given products with row locks held for the
	// duration of tx. IDs are locked in sorted order.
	LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]Product, error)

	// AdjustStock applies stockDelta and soldDelta to a product's counters
	// within tx. Negative stockDelta must not drive stock below zero.
	AdjustStock(ctx context.Context, tx pgx.Tx, id string, stockDelta, soldDelta int) error
}
