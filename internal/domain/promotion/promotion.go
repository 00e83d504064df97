// Package promotion implements time-boxed automatic discounts. Unlike
// coupons, promotions apply to an explicit list of products without the
// customer entering a code, and carry no usage-limit concept.
package promotion

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Promotion describes one administrator-curated discount campaign.
type Promotion struct {
	ID              string
	Name            string
	Type            string
	DiscountPercent decimal.Decimal
	StartsAt        time.Time
	EndsAt          time.Time
	Active          bool
	ProductIDs      []string
}

// Contains reports whether the promotion window includes t.
func (p *Promotion) Contains(t time.Time) bool {
	return !t.Before(p.StartsAt) && !t.After(p.EndsAt)
}

// Repository provides lookup of promotions.
type Repository interface {
	// ActiveAt returns promotions whose window contains t and whose
	// active flag is set.
	ActiveAt(ctx context.Context, t time.Time) ([]Promotion, error)
}
