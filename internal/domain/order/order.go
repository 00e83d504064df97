package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states. Delivered and Cancelled are
// terminal: no transition may leave them.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusProcessing     Status = "PROCESSING"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions may leave this status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Sentinel errors for order operations.
var (
	ErrNotFound   = errors.New("order not found")
	ErrEmptyItems = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidTransitionError indicates an attempt to leave a terminal status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// LineItem is one product entry in an order.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// HistoryEntry is one immutable audit record of a status transition.
// Entries are only ever appended, never updated or deleted.
type HistoryEntry struct {
	ID        string
	OrderID   string
	Status    Status
	Note      string
	Actor     string
	CreatedAt time.Time
}

// Order is one customer order.
// Invariant: Total = Subtotal - Discount + ShippingFee, and Total >= 0.
type Order struct {
	ID             string
	UserID         string
	Items          []LineItem
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	ShippingFee    decimal.Decimal
	Total          decimal.Decimal
	CouponCode     string
	ShippingZoneID string
	Status         Status

	TrackingNumber string
	Courier        string

	ConfirmedAt      *time.Time
	ProcessingAt     *time.Time
	ShippedAt        *time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	History []HistoryEntry
}

// stamp records the wall-clock moment the order entered status.
func (o *Order) stamp(status Status, at time.Time) {
	switch status {
	case StatusConfirmed:
		o.ConfirmedAt = &at
	case StatusProcessing:
		o.ProcessingAt = &at
	case StatusShipped:
		o.ShippedAt = &at
	case StatusOutForDelivery:
		o.OutForDeliveryAt = &at
	case StatusDelivered:
		o.DeliveredAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	}
}

// Repository provides transactional persistence for orders, their line items
// and their append-only status history.
type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	// Save persists a new order and its line items within tx.
	Save(ctx context.Context, tx pgx.Tx, o *Order) error

	// FindForUpdate fetches the order with its items, holding a row lock
	// for the duration of tx. Returns ErrNotFound when it does not exist.
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Order, error)

	// GetByID fetches the order with its items and full status history.
	GetByID(ctx context.Context, id string) (*Order, error)

	// UpdateStatus writes the order's status, transition timestamps and
	// tracking fields within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, o *Order) error

	// AppendHistory inserts one immutable history entry within tx.
	AppendHistory(ctx context.Context, tx pgx.Tx, e HistoryEntry) error
}
