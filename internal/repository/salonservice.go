package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/appointment"
)

const (
	getActiveServiceSQL = `SELECT id, name, duration_minutes, price, active
		FROM salon_services WHERE id = $1 AND active = TRUE`

	listServicesSQL = `SELECT id, name, duration_minutes, price, active
		FROM salon_services ORDER BY name`
)

var _ appointment.ServiceRepository = (*SalonServiceRepository)(nil)

// SalonServiceRepository implements appointment.ServiceRepository backed by
// PostgreSQL.
type SalonServiceRepository struct {
	pool *pgxpool.Pool
}

// NewSalonServiceRepository returns a SalonServiceRepository that uses the
// given pool.
func NewSalonServiceRepository(pool *pgxpool.Pool) *SalonServiceRepository {
	return &SalonServiceRepository{pool: pool}
}

// GetActive returns the active service with the given ID, or
// appointment.ErrServiceNotFound when it is absent or deactivated.
func (r *SalonServiceRepository) GetActive(ctx context.Context, id string) (*appointment.Service, error) {
	rows, err := r.pool.Query(ctx, getActiveServiceSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting salon service %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSalonService)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrServiceNotFound
		}
		return nil, fmt.Errorf("getting salon service %q: %w", id, err)
	}
	return &s, nil
}

// List returns every salon service, active or not, ordered by name.
func (r *SalonServiceRepository) List(ctx context.Context) ([]appointment.Service, error) {
	rows, err := r.pool.Query(ctx, listServicesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing salon services: %w", err)
	}
	return pgx.CollectRows(rows, scanSalonService)
}

func scanSalonService(row pgx.CollectableRow) (appointment.Service, error) {
	var s appointment.Service
	err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.Active)
	return s, err
}
