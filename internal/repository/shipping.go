package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/shipping"
)

const (
	getActiveZoneSQL = `SELECT id, district, distance_km, base_fee, per_kg_fee,
		estimated_days, active
		FROM shipping_zones WHERE id = $1 AND active = TRUE`

	listZonesSQL = `SELECT id, district, distance_km, base_fee, per_kg_fee,
		estimated_days, active
		FROM shipping_zones ORDER BY district`
)

var _ shipping.Repository = (*ShippingZoneRepository)(nil)

// ShippingZoneRepository implements shipping.Repository backed by PostgreSQL.
type ShippingZoneRepository struct {
	pool *pgxpool.Pool
}

// NewShippingZoneRepository returns a ShippingZoneRepository that uses the
// given pool.
func NewShippingZoneRepository(pool *pgxpool.Pool) *ShippingZoneRepository {
	return &ShippingZoneRepository{pool: pool}
}

// GetActive returns the active zone with the given ID, or
// shipping.ErrZoneNotFound when it is absent or deactivated.
func (r *ShippingZoneRepository) GetActive(ctx context.Context, id string) (*shipping.Zone, error) {
	rows, err := r.pool.Query(ctx, getActiveZoneSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting shipping zone %q: %w", id, err)
	}

	z, err := pgx.CollectExactlyOneRow(rows, scanZone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrZoneNotFound
		}
		return nil, fmt.Errorf("getting shipping zone %q: %w", id, err)
	}
	return &z, nil
}

// List returns every shipping zone, active or not, ordered by district.
func (r *ShippingZoneRepository) List(ctx context.Context) ([]shipping.Zone, error) {
	rows, err := r.pool.Query(ctx, listZonesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing shipping zones: %w", err)
	}
	return pgx.CollectRows(rows, scanZone)
}

func scanZone(row pgx.CollectableRow) (shipping.Zone, error) {
	var z shipping.Zone
	err := row.Scan(
		&z.ID, &z.District, &z.DistanceKm, &z.BaseFee, &z.PerKgFee,
		&z.EstimatedDays, &z.Active,
	)
	return z, err
}
