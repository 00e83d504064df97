package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowline/commerce/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		id, user_id, subtotal, discount, shipping_fee, total,
		coupon_code, shipping_zone_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`

	selectOrderSQL = `SELECT id, user_id, subtotal, discount, shipping_fee, total,
		coupon_code, shipping_zone_id, status, tracking_number, courier,
		confirmed_at, processing_at, shipped_at, out_for_delivery_at,
		delivered_at, cancelled_at, created_at, updated_at
		FROM orders WHERE id = $1`

	selectOrderForUpdateSQL = selectOrderSQL + ` FOR UPDATE`

	selectOrderItemsSQL = `SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY product_id`

	updateOrderStatusSQL = `UPDATE orders SET
		status = $2, tracking_number = $3, courier = $4,
		confirmed_at = $5, processing_at = $6, shipped_at = $7,
		out_for_delivery_at = $8, delivered_at = $9, cancelled_at = $10,
		updated_at = $11
		WHERE id = $1`

	insertHistorySQL = `INSERT INTO order_status_history (id, order_id, status, note, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectHistorySQL = `SELECT id, order_id, status, note, actor, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Orders,
// their line items and their status history live in three tables; writes are
// always performed inside a caller-owned transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Begin opens a transaction on the pool.
func (r *OrderRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// Save persists a new order and its line items within tx.
func (r *OrderRepository) Save(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Subtotal, o.Discount, o.ShippingFee, o.Total,
		o.CouponCode, o.ShippingZoneID, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.Quantity, item.UnitPrice,
		); err != nil {
			return fmt.Errorf("inserting order item %q/%q: %w", o.ID, item.ProductID, err)
		}
	}
	return nil
}

// FindForUpdate fetches the order with its items, holding a row lock on the
// orders row for the duration of tx.
func (r *OrderRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*order.Order, error) {
	rows, err := tx.Query(ctx, selectOrderForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	itemRows, err := tx.Query(ctx, selectOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}
	return &o, nil
}

// GetByID fetches the order with its items and full status history.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, selectOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}

	histRows, err := r.pool.Query(ctx, selectHistorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading history for order %q: %w", id, err)
	}
	o.History, err = pgx.CollectRows(histRows, scanHistoryEntry)
	if err != nil {
		return nil, fmt.Errorf("loading history for order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus writes the order's status, transition timestamps and tracking
// fields within tx.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, updateOrderStatusSQL,
		o.ID, string(o.Status), o.TrackingNumber, o.Courier,
		o.ConfirmedAt, o.ProcessingAt, o.ShippedAt,
		o.OutForDeliveryAt, o.DeliveredAt, o.CancelledAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", o.ID, err)
	}
	return nil
}

// AppendHistory inserts one immutable status history entry within tx.
func (r *OrderRepository) AppendHistory(ctx context.Context, tx pgx.Tx, e order.HistoryEntry) error {
	_, err := tx.Exec(ctx, insertHistorySQL,
		e.ID, e.OrderID, string(e.Status), e.Note, e.Actor, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history for order %q: %w", e.OrderID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.ShippingFee, &o.Total,
		&o.CouponCode, &o.ShippingZoneID, &status, &o.TrackingNumber, &o.Courier,
		&o.ConfirmedAt, &o.ProcessingAt, &o.ShippedAt, &o.OutForDeliveryAt,
		&o.DeliveredAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var (
		item  order.LineItem
		price decimal.Decimal
	)
	err := row.Scan(&item.ProductID, &item.Quantity, &price)
	item.UnitPrice = price
	return item, err
}

func scanHistoryEntry(row pgx.CollectableRow) (order.HistoryEntry, error) {
	var (
		e      order.HistoryEntry
		status string
	)
	err := row.Scan(&e.ID, &e.OrderID, &status, &e.Note, &e.Actor, &e.CreatedAt)
	e.Status = order.Status(status)
	return e, err
}
