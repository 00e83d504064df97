package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrZoneNotFound is returned when a delivery zone is absent or inactive.
var ErrZoneNotFound = errors.New("shipping zone not found")

// Zone describes one delivery region and its fee parameters.
type Zone struct {
	ID            string
	District      string
	DistanceKm    decimal.Decimal
	BaseFee       decimal.Decimal
	PerKgFee      decimal.Decimal
	EstimatedDays int
	Active        bool
}

// Quote is the result of a fee calculation.
type Quote struct {
	Zone          Zone
	WeightKg      decimal.Decimal
	Fee           decimal.Decimal
	EstimatedDays int
}

// Repository provides lookup of active shipping zones.
type Repository interface {
	// GetActive returns the zone with the given ID, or ErrZoneNotFound if
	// it is absent or deactivated.
	GetActive(ctx context.Context, id string) (*Zone, error)
	List(ctx context.Context) ([]Zone, error)
}
