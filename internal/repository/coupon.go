package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, min_order_amount,
		max_discount_amount, usage_limit, per_user_limit, usage_count,
		starts_at, ends_at, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM coupon_redemptions
		WHERE UPPER(code) = UPPER($1) AND user_id = $2`

	// The usage_limit guard makes the increment conditional: when the
	// counter is already at the limit, zero rows update and the caller
	// sees ErrUsageLimitExceeded. Two transactions racing for the last
	// slot serialize on the row lock; the loser's guard fails.
	incrementUsageSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1)
		AND (usage_limit = 0 OR usage_count < usage_limit)`

	insertRedemptionSQL = `INSERT INTO coupon_redemptions (id, code, user_id, order_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively.
// Returns coupon.ErrNotFound when no such code exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// CountUserRedemptions returns how many committed orders by userID have
// already redeemed the given code.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, code, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, code, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting redemptions of %q by %q: %w", code, userID, err)
	}
	return n, nil
}

// Redeem consumes one usage slot of the coupon and records the redemption,
// both within tx. Returns coupon.ErrUsageLimitExceeded when the usage limit
// is already reached.
func (r *CouponRepository) Redeem(ctx context.Context, tx pgx.Tx, code, userID, orderID string) error {
	tag, err := tx.Exec(ctx, incrementUsageSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage of coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitExceeded
	}

	if _, err := tx.Exec(ctx, insertRedemptionSQL, uuid.New().String(), code, userID, orderID); err != nil {
		return fmt.Errorf("recording redemption of coupon %q: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.Code, &discountType, &c.Value, &c.MinOrderAmount,
		&c.MaxDiscountAmount, &c.UsageLimit, &c.PerUserLimit, &c.UsageCount,
		&c.StartsAt, &c.EndsAt, &c.Active,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
