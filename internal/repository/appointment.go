package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/appointment"
)

const (
	// hashtext gives a stable 32-bit key for the advisory lock, so all
	// bookings touching the same date serialize on one lock without a
	// dedicated lock table.
	lockScheduleSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	// Half-open interval overlap: existing.start < candidate.end AND
	// candidate.start < existing.end. Cancelled appointments free their
	// slot and are excluded. Rows without a stylist hold the slot against
	// every stylist, so they match regardless of the requested stylist.
	hasOverlapSQL = `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE (stylist_id = $1 OR stylist_id = '') AND date = $2
		AND status <> 'CANCELLED'
		AND start_minutes < $4 AND $3 < end_minutes)`

	hasAnyOverlapSQL = `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE date = $1 AND status <> 'CANCELLED'
		AND start_minutes < $3 AND $2 < end_minutes)`

	insertAppointmentSQL = `INSERT INTO appointments (
		id, reference, user_id, service_id, stylist_id, date,
		start_minutes, end_minutes, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectAppointmentSQL = `SELECT id, reference, user_id, service_id, stylist_id, date,
		start_minutes, end_minutes, status, total_amount, created_at
		FROM appointments WHERE id = $1`

	selectAppointmentForUpdateSQL = selectAppointmentSQL + ` FOR UPDATE`

	updateAppointmentStatusSQL = `UPDATE appointments SET status = $2 WHERE id = $1`
)

var _ appointment.Repository = (*AppointmentRepository)(nil)

// AppointmentRepository implements appointment.Repository backed by
// PostgreSQL.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository returns an AppointmentRepository that uses the
// given pool.
func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Begin opens a transaction on the pool.
func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// LockSchedule acquires the transaction-scoped advisory lock for the date's
// schedule. The lock releases automatically at commit or rollback. A single
// date-wide key serializes stylist-specific and unassigned bookings alike,
// since an unassigned booking can conflict with any stylist's.
func (r *AppointmentRepository) LockSchedule(ctx context.Context, tx pgx.Tx, date time.Time) error {
	key := fmt.Sprintf("appt:%s", date.Format("2006-01-02"))
	if _, err := tx.Exec(ctx, lockScheduleSQL, key); err != nil {
		return fmt.Errorf("locking schedule %q: %w", key, err)
	}
	return nil
}

// HasOverlap reports whether any non-cancelled appointment on date
// intersects the half-open interval [startMinutes, endMinutes). A named
// stylist is checked against that stylist's rows and against unassigned
// rows; with an empty stylistID every schedule for the date is checked.
func (r *AppointmentRepository) HasOverlap(ctx context.Context, tx pgx.Tx, stylistID string, date time.Time, startMinutes, endMinutes int) (bool, error) {
	var (
		exists bool
		err    error
	)
	if stylistID == "" {
		err = tx.QueryRow(ctx, hasAnyOverlapSQL, date, startMinutes, endMinutes).Scan(&exists)
	} else {
		err = tx.QueryRow(ctx, hasOverlapSQL, stylistID, date, startMinutes, endMinutes).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("checking slot overlap: %w", err)
	}
	return exists, nil
}

// Save persists a new appointment within tx.
func (r *AppointmentRepository) Save(ctx context.Context, tx pgx.Tx, a *appointment.Appointment) error {
	_, err := tx.Exec(ctx, insertAppointmentSQL,
		a.ID, a.Reference, a.UserID, a.ServiceID, a.StylistID, a.Date,
		a.StartMinutes, a.EndMinutes, string(a.Status), a.TotalAmount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting appointment %q: %w", a.ID, err)
	}
	return nil
}

// GetByID returns a single appointment by its identifier.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*appointment.Appointment, error) {
	rows, err := r.pool.Query(ctx, selectAppointmentSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting appointment %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrNotFound
		}
		return nil, fmt.Errorf("getting appointment %q: %w", id, err)
	}
	return &a, nil
}

// FindForUpdate fetches the appointment with its row locked for the
// duration of tx.
func (r *AppointmentRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*appointment.Appointment, error) {
	rows, err := tx.Query(ctx, selectAppointmentForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking appointment %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrNotFound
		}
		return nil, fmt.Errorf("locking appointment %q: %w", id, err)
	}
	return &a, nil
}

// UpdateStatus writes the appointment status within tx.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status appointment.Status) error {
	if _, err := tx.Exec(ctx, updateAppointmentStatusSQL, id, string(status)); err != nil {
		return fmt.Errorf("updating status of appointment %q: %w", id, err)
	}
	return nil
}

func scanAppointment(row pgx.CollectableRow) (appointment.Appointment, error) {
	var (
		a      appointment.Appointment
		status string
	)
	err := row.Scan(
		&a.ID, &a.Reference, &a.UserID, &a.ServiceID, &a.StylistID, &a.Date,
		&a.StartMinutes, &a.EndMinutes, &status, &a.TotalAmount, &a.CreatedAt,
	)
	a.Status = appointment.Status(status)
	return a, err
}
