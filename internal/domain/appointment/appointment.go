package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Status enumerates the appointment lifecycle states.
// Cancelled and Completed are terminal.
type Status string

// minutesPerDay bounds the [start, end) interval of a booking; the schema
// enforces the same limit on end_minutes.
const minutesPerDay = 24 * 60

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no further transitions may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

var (
	// ErrNotFound is returned when a requested appointment does not exist.
	ErrNotFound = errors.New("appointment not found")
	// ErrServiceNotFound is returned when the referenced salon service is
	// absent or inactive.
	ErrServiceNotFound = errors.New("salon service not found")
)

// SlotConflictError indicates the requested time interval overlaps an
// existing non-cancelled appointment.
type SlotConflictError struct {
	StylistID    string
	Date         time.Time
	StartMinutes int
	EndMinutes   int
}

func (e *SlotConflictError) Error() string {
	who := "any stylist"
	if e.StylistID != "" {
		who = "stylist " + e.StylistID
	}
	return fmt.Sprintf("slot %s–%s on %s is already booked for %s",
		minutesToClock(e.StartMinutes), minutesToClock(e.EndMinutes),
		e.Date.Format("2006-01-02"), who)
}

// InvalidSlotError indicates a requested interval that does not fit
// within a single day's schedule.
type InvalidSlotError struct {
	StartMinutes int
	EndMinutes   int
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("slot %s–%s extends past the end of the day",
		minutesToClock(e.StartMinutes), minutesToClock(e.EndMinutes))
}

// InvalidTransitionError indicates an attempt to leave a terminal status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

// minutesToClock renders minutes-from-midnight as HH:MM wall-clock time.
func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Appointment is one reserved (stylist, date, time-interval) slot.
// Times are minutes from midnight in the salon's local wall clock;
// the [StartMinutes, EndMinutes) interval is half-open.
type Appointment struct {
	ID           string
	Reference    string
	UserID       string
	ServiceID    string
	StylistID    string // empty when no specific stylist was requested
	Date         time.Time
	StartMinutes int
	EndMinutes   int
	Status       Status
	TotalAmount  decimal.Decimal
	CreatedAt    time.Time
}

// Service describes one bookable salon service.
type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	Price           decimal.Decimal
	Active          bool
}

// ServiceRepository provides lookup of bookable salon services.
type ServiceRepository interface {
	// GetActive returns the service with the given ID, or
	// ErrServiceNotFound when absent or inactive.
	GetActive(ctx context.Context, id string) (*Service, error)
	List(ctx context.Context) ([]Service, error)
}

// Repository provides transactional persistence for appointments.
type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	// LockSchedule acquires the coarse per-date mutual exclusion lock for
	// the duration of tx. Every booking for a date serializes on the same
	// lock, so stylist-specific and unassigned bookings never race.
	LockSchedule(ctx context.Context, tx pgx.Tx, date time.Time) error

	// HasOverlap reports whether any non-cancelled appointment on date
	// intersects [startMinutes, endMinutes). A named stylist conflicts
	// with that stylist's appointments and with unassigned ones; an empty
	// stylistID conflicts with every appointment on the date.
	HasOverlap(ctx context.Context, tx pgx.Tx, stylistID string, date time.Time, startMinutes, endMinutes int) (bool, error)

	Save(ctx context.Context, tx pgx.Tx, a *Appointment) error

	GetByID(ctx context.Context, id string) (*Appointment, error)

	// FindForUpdate fetches the appointment with its row locked for the
	// duration of tx. Returns ErrNotFound when it does not exist.
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Appointment, error)

	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error
}
