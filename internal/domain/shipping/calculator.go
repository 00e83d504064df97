package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var defaultWeight = decimal.NewFromInt(1)

// Calculator computes shipping fees from zone records. It holds no state
// beyond the zone repository and has no side effects.
type Calculator struct {
	zones Repository
}

// NewCalculator creates a Calculator backed by the given zone repository.
func NewCalculator(zones Repository) *Calculator {
	return &Calculator{zones: zones}
}

// Calculate returns the shipping fee and delivery estimate for the given zone
// and parcel weight. The fee is baseFee + perKgFee * weightKg, rounded to the
// nearest whole currency unit. A zero or negative weight defaults to 1 kg.
// Returns ErrZoneNotFound when the zone is absent or inactive.
func (c *Calculator) Calculate(ctx context.Context, zoneID string, weightKg decimal.Decimal) (*Quote, error) {
	zone, err := c.zones.GetActive(ctx, zoneID)
	if err != nil {
		if errors.Is(err, ErrZoneNotFound) {
			return nil, ErrZoneNotFound
		}
		return nil, errors.Wrap(err, "lookup zone")
	}

	if weightKg.Sign() <= 0 {
		weightKg = defaultWeight
	}

	fee := zone.BaseFee.Add(zone.PerKgFee.Mul(weightKg)).Round(0)

	return &Quote{
		Zone:          *zone,
		WeightKg:      weightKg,
		Fee:           fee,
		EstimatedDays: zone.EstimatedDays,
	}, nil
}
