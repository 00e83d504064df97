package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// Percentage applies a percentage-based discount to the order total.
	Percentage DiscountType = "PERCENTAGE"
	// Fixed applies a fixed monetary discount capped at the order total.
	Fixed DiscountType = "FIXED"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when a coupon is deactivated or outside its
	// valid time window.
	ErrInactive = errors.New("coupon inactive")
	// ErrUsageLimitExceeded is returned when a coupon has exhausted its
	// allowed uses, globally or for the requesting user.
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
)

// MinimumNotMetError indicates the order total is below the coupon's
// minimum order amount.
type MinimumNotMetError struct {
	Code           string
	MinOrderAmount decimal.Decimal
	OrderTotal     decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return "coupon " + e.Code + " requires a minimum order of " + e.MinOrderAmount.String()
}

// Coupon defines one discount code and its eligibility constraints.
// Codes are unique and compared case-insensitively. Zero values for the
// limit fields and nil window bounds mean "unrestricted".
type Coupon struct {
	Code              string
	DiscountType      DiscountType
	Value             decimal.Decimal
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount decimal.Decimal
	UsageLimit        int
	PerUserLimit      int
	UsageCount        int
	StartsAt          *time.Time
	EndsAt            *time.Time
	Active            bool
}

// Discount holds a computed discount amount together with the coupon that
// produced it.
type Discount struct {
	Code   string
	Amount decimal.Decimal
	Coupon Coupon
}

// Repository provides lookup and redemption of coupons.
//
// Redeem is the only mutation: it increments the usage counter with an
// atomic limit check and must run inside the same transaction that commits
// the order, so abandoned checkouts never consume a usage slot.
type Repository interface {
	// FindByCode looks up a coupon case-insensitively.
	// Returns ErrNotFound when no such code exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// CountUserRedemptions returns how many times userID has already
	// redeemed the given code on committed orders.
	CountUserRedemptions(ctx context.Context, code, userID string) (int, error)

	// Redeem increments the usage counter within tx, failing with
	// ErrUsageLimitExceeded when no usage slot remains, and records a
	// redemption row for the (code, user, order) triple.
	Redeem(ctx context.Context, tx pgx.Tx, code, userID, orderID string) error
}
