package order

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glowline/commerce/internal/domain/catalog"
	"github.com/glowline/commerce/internal/domain/coupon"
	"github.com/glowline/commerce/internal/domain/reward"
	"github.com/glowline/commerce/internal/domain/shipping"
	"github.com/glowline/commerce/internal/notify"
)

// ShippingQuoter computes shipping fees for a delivery zone and weight.
// *shipping.Calculator satisfies it.
type ShippingQuoter interface {
	Calculate(ctx context.Context, zoneID string, weightKg decimal.Decimal) (*shipping.Quote, error)
}

// ItemRequest is one requested line item when placing an order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for placing an order. UserID is the acting
// customer's identity, passed explicitly by the caller.
type CreateRequest struct {
	UserID         string
	Items          []ItemRequest
	ShippingZoneID string
	WeightKg       decimal.Decimal
	CouponCode     string
}

// TransitionRequest holds the input for moving an order to a new status.
// Actor identifies who requested the change and is recorded in the audit
// history. Tracking fields are applied when entering the shipped state.
type TransitionRequest struct {
	OrderID        string
	NewStatus      Status
	Note           string
	Actor          string
	TrackingNumber string
	Courier        string
}

// Service owns the order lifecycle: creation with discount and shipping
// composition, and the status state machine with its stock and loyalty-point
// side effects.
type Service struct {
	orders   Repository
	products catalog.Store
	coupons  coupon.Validator
	redeemer coupon.Repository
	shipping ShippingQuoter
	rewards  reward.Repository
	notifier notify.Dispatcher
	lg       *zap.Logger

	// pointsPerUnit is the amount of currency that earns one loyalty
	// point on delivery.
	pointsPerUnit decimal.Decimal

	now func() time.Time
}

// Config holds the dependencies and tuning for a Service.
type Config struct {
	Orders        Repository
	Products      catalog.Store
	Coupons       coupon.Validator
	Redeemer      coupon.Repository
	Shipping      ShippingQuoter
	Rewards       reward.Repository
	Notifier      notify.Dispatcher
	Logger        *zap.Logger
	PointsPerUnit decimal.Decimal
}

// NewService creates an order Service.
func NewService(cfg Config) *Service {
	return &Service{
		orders:        cfg.Orders,
		products:      cfg.Products,
		coupons:       cfg.Coupons,
		redeemer:      cfg.Redeemer,
		shipping:      cfg.Shipping,
		rewards:       cfg.Rewards,
		notifier:      cfg.Notifier,
		lg:            cfg.Logger,
		pointsPerUnit: cfg.PointsPerUnit,
		now:           time.Now,
	}
}

// Create places a new order in the pending state. Products are locked and
// stock checked before anything is written; stock is decremented and the
// sold counter incremented inside the same transaction, so cancellation can
// restore both symmetrically. When a coupon code is supplied its usage slot
// is consumed atomically with the order commit.
//
// On any failure the transaction rolls back and no partial state remains.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}
	// Stable lock order prevents deadlocks between concurrent orders.
	sort.Strings(ids)

	tx, err := s.orders.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fetched, err := s.products.LockByIDs(ctx, tx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}

	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Merge duplicate product references into one line item per product so
	// stock is checked once and the per-order item rows stay unique.
	wanted := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		wanted[item.ProductID] += item.Quantity
	}

	subtotal := decimal.Zero
	items := make([]LineItem, 0, len(wanted))
	seen := make(map[string]struct{}, len(wanted))
	for _, item := range req.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}

		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		qty := wanted[item.ProductID]
		if p.Stock < qty {
			return nil, &catalog.InsufficientStockError{
				ProductID: p.ID,
				Requested: qty,
				Available: p.Stock,
			}
		}
		items = append(items, LineItem{
			ProductID: p.ID,
			Quantity:  qty,
			UnitPrice: p.Price,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, req.UserID)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		// A discount can never exceed the subtotal; this keeps
		// total = subtotal - discount + fee non-negative.
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	quote, err := s.shipping.Calculate(ctx, req.ShippingZoneID, req.WeightKg)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		Items:          items,
		Subtotal:       subtotal,
		Discount:       discount,
		ShippingFee:    quote.Fee,
		Total:          subtotal.Sub(discount).Add(quote.Fee),
		CouponCode:     req.CouponCode,
		ShippingZoneID: req.ShippingZoneID,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for id, qty := range wanted {
		if err := s.products.AdjustStock(ctx, tx, id, -qty, qty); err != nil {
			return nil, errors.Wrap(err, "decrement stock")
		}
	}

	if err := s.orders.Save(ctx, tx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}

	if err := s.orders.AppendHistory(ctx, tx, HistoryEntry{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		Status:    StatusPending,
		Note:      "order placed",
		Actor:     req.UserID,
		CreatedAt: now,
	}); err != nil {
		return nil, errors.Wrap(err, "append history")
	}

	if req.CouponCode != "" {
		// The conditional increment runs in the same transaction as the
		// order insert: two checkouts racing for the last usage slot
		// cannot both commit.
		if err := s.redeemer.Redeem(ctx, tx, req.CouponCode, req.UserID, o.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	s.dispatch(ctx, notify.Event{
		Kind:     notify.KindOrder,
		EntityID: o.ID,
		UserID:   o.UserID,
		Status:   string(StatusPending),
	})

	return o, nil
}

// Transition moves an order to newStatus, appending one history entry and
// applying the side effects keyed on the target status: stock restoration on
// cancellation, loyalty-point award on delivery.
//
// Side effects run only when the stored status actually differs from the
// requested one, read under a row lock immediately before the update, so a
// retried call is a harmless no-op. Leaving a terminal status fails with
// InvalidTransitionError.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Order, error) {
	tx, err := s.orders.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.orders.FindForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}

	if o.Status == req.NewStatus {
		// Idempotent retry: nothing to do, no side effects.
		return o, nil
	}
	if o.Status.Terminal() {
		return nil, &InvalidTransitionError{From: o.Status, To: req.NewStatus}
	}

	now := s.now()
	o.Status = req.NewStatus
	o.UpdatedAt = now
	o.stamp(req.NewStatus, now)
	if req.NewStatus == StatusShipped {
		if req.TrackingNumber != "" {
			o.TrackingNumber = req.TrackingNumber
		}
		if req.Courier != "" {
			o.Courier = req.Courier
		}
	}

	if err := s.orders.UpdateStatus(ctx, tx, o); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	if err := s.orders.AppendHistory(ctx, tx, HistoryEntry{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		Status:    req.NewStatus,
		Note:      req.Note,
		Actor:     req.Actor,
		CreatedAt: now,
	}); err != nil {
		return nil, errors.Wrap(err, "append history")
	}

	switch req.NewStatus {
	case StatusCancelled:
		if err := s.restoreStock(ctx, tx, o); err != nil {
			return nil, err
		}
	case StatusDelivered:
		if err := s.awardPoints(ctx, tx, o, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	s.dispatch(ctx, notify.Event{
		Kind:     notify.KindOrder,
		EntityID: o.ID,
		UserID:   o.UserID,
		Status:   string(req.NewStatus),
		Note:     req.Note,
	})

	return o, nil
}

// Get returns an order with its items and status history.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// restoreStock returns every line item's quantity to stock and rolls back
// the sold counter, undoing the decrement performed at creation.
func (s *Service) restoreStock(ctx context.Context, tx pgx.Tx, o *Order) error {
	restored := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		restored[item.ProductID] += item.Quantity
	}
	for id, qty := range restored {
		if err := s.products.AdjustStock(ctx, tx, id, qty, -qty); err != nil {
			return errors.Wrap(err, "restore stock")
		}
	}
	return nil
}

// awardPoints appends one EARNED_PURCHASE ledger entry worth
// floor(total / pointsPerUnit) points. The ledger is checked first so the
// award stays idempotent per order even across out-of-band retries.
func (s *Service) awardPoints(ctx context.Context, tx pgx.Tx, o *Order, now time.Time) error {
	points := o.Total.Div(s.pointsPerUnit).Floor().IntPart()
	if points <= 0 {
		return nil
	}

	exists, err := s.rewards.ExistsForOrder(ctx, tx, o.ID, reward.EarnedPurchase)
	if err != nil {
		return errors.Wrap(err, "check existing award")
	}
	if exists {
		return nil
	}

	return errors.Wrap(s.rewards.Append(ctx, tx, reward.Entry{
		ID:        uuid.New().String(),
		UserID:    o.UserID,
		Points:    points,
		Type:      reward.EarnedPurchase,
		OrderID:   o.ID,
		CreatedAt: now,
	}), "append ledger entry")
}

// dispatch fires a notification without blocking or failing the caller.
func (s *Service) dispatch(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.notifier.Dispatch(ctx, e); err != nil {
			s.lg.Warn("notification dispatch failed",
				zap.String("entity_id", e.EntityID),
				zap.Error(err),
			)
		}
	}()
}
