package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against an order total and returns the
// computed discount. Validation never mutates the usage counter; the caller
// redeems the coupon when the order is actually committed.
type Validator interface {
	Validate(ctx context.Context, code string, orderTotal decimal.Decimal, userID string) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupons from a Repository
// and applying them via Apply.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate checks the coupon identified by code against the order total and
// the requesting user, and returns the discount it would grant.
//
// Failure modes, in evaluation order: ErrNotFound for an unknown code,
// ErrInactive when the coupon is deactivated or "now" falls outside its
// [StartsAt, EndsAt] window, ErrUsageLimitExceeded when the global or
// per-user limit is exhausted, and MinimumNotMetError when the order total
// is below the coupon's threshold.
func (v *RepoValidator) Validate(ctx context.Context, code string, orderTotal decimal.Decimal, userID string) (*Discount, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if !c.Active {
		return nil, ErrInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return nil, ErrInactive
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return nil, ErrInactive
	}

	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return nil, ErrUsageLimitExceeded
	}

	if c.PerUserLimit > 0 {
		used, err := v.repo.CountUserRedemptions(ctx, c.Code, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user redemptions")
		}
		if used >= c.PerUserLimit {
			return nil, ErrUsageLimitExceeded
		}
	}

	if c.MinOrderAmount.Sign() > 0 && orderTotal.LessThan(c.MinOrderAmount) {
		return nil, &MinimumNotMetError{
			Code:           c.Code,
			MinOrderAmount: c.MinOrderAmount,
			OrderTotal:     orderTotal,
		}
	}

	amount, err := Apply(c, orderTotal)
	if err != nil {
		return nil, err
	}

	return &Discount{
		Code:   c.Code,
		Amount: amount,
		Coupon: *c,
	}, nil
}
