package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount the given coupon grants on orderTotal.
// It performs no eligibility checks; callers are expected to have validated
// the coupon first.
func Apply(c *Coupon, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	switch c.DiscountType {
	case Percentage:
		return applyPercentage(c, orderTotal), nil
	case Fixed:
		return applyFixed(c, orderTotal), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}

// applyPercentage computes orderTotal * value / 100 rounded to the whole
// currency unit, capped at MaxDiscountAmount when one is set.
func applyPercentage(c *Coupon, orderTotal decimal.Decimal) decimal.Decimal {
	amount := orderTotal.Mul(c.Value).Div(hundred).Round(0)
	if c.MaxDiscountAmount.Sign() > 0 && amount.GreaterThan(c.MaxDiscountAmount) {
		amount = c.MaxDiscountAmount
	}
	return amount
}

// applyFixed returns the coupon value, never exceeding the order total.
func applyFixed(c *Coupon, orderTotal decimal.Decimal) decimal.Decimal {
	return decimal.Min(c.Value, orderTotal)
}
