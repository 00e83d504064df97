package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowline/commerce/internal/notify"
)

// BookRequest holds the input for reserving a slot.
type BookRequest struct {
	ServiceID    string
	StylistID    string // optional
	UserID       string
	Date         time.Time
	StartMinutes int
}

// Allocator reserves appointment slots without double-booking. The conflict
// check and the insert run inside one transaction under a per-date lock, so
// two concurrent requests for overlapping intervals cannot both succeed.
type Allocator struct {
	services     ServiceRepository
	appointments Repository
	notifier     notify.Dispatcher
	lg           *zap.Logger
	now          func() time.Time
}

// NewAllocator creates an Allocator. notifier and lg may be nil.
func NewAllocator(services ServiceRepository, appointments Repository, notifier notify.Dispatcher, lg *zap.Logger) *Allocator {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Allocator{
		services:     services,
		appointments: appointments,
		notifier:     notifier,
		lg:           lg,
		now:          time.Now,
	}
}

// Book reserves the requested slot. The end time is derived from the salon
// service's duration. It fails with ErrServiceNotFound for an unknown or
// inactive service, with InvalidSlotError when the interval runs past
// midnight, and with SlotConflictError when the interval intersects an
// existing non-cancelled appointment on the same schedule.
func (a *Allocator) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	svc, err := a.services.GetActive(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, errors.Wrap(err, "lookup service")
	}

	end := req.StartMinutes + svc.DurationMinutes
	if end > minutesPerDay {
		return nil, &InvalidSlotError{StartMinutes: req.StartMinutes, EndMinutes: end}
	}

	tx, err := a.appointments.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := a.appointments.LockSchedule(ctx, tx, req.Date); err != nil {
		return nil, errors.Wrap(err, "lock schedule")
	}

	conflict, err := a.appointments.HasOverlap(ctx, tx, req.StylistID, req.Date, req.StartMinutes, end)
	if err != nil {
		return nil, errors.Wrap(err, "check overlap")
	}
	if conflict {
		return nil, &SlotConflictError{
			StylistID:    req.StylistID,
			Date:         req.Date,
			StartMinutes: req.StartMinutes,
			EndMinutes:   end,
		}
	}

	appt := &Appointment{
		ID:           uuid.New().String(),
		Reference:    newReference(req.Date),
		UserID:       req.UserID,
		ServiceID:    svc.ID,
		StylistID:    req.StylistID,
		Date:         req.Date,
		StartMinutes: req.StartMinutes,
		EndMinutes:   end,
		Status:       StatusPending,
		TotalAmount:  svc.Price,
		CreatedAt:    a.now(),
	}

	if err := a.appointments.Save(ctx, tx, appt); err != nil {
		return nil, errors.Wrap(err, "save appointment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return appt, nil
}

// Transition moves an appointment to status. A transition out of a terminal
// status fails with InvalidTransitionError; re-applying the current status
// is a no-op that succeeds without any write.
func (a *Allocator) Transition(ctx context.Context, id string, status Status) (*Appointment, error) {
	tx, err := a.appointments.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := a.appointments.FindForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find appointment")
	}

	if appt.Status == status {
		return appt, nil
	}
	if appt.Status.Terminal() {
		return nil, &InvalidTransitionError{From: appt.Status, To: status}
	}

	if err := a.appointments.UpdateStatus(ctx, tx, id, status); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	appt.Status = status
	a.dispatch(ctx, notify.Event{
		Kind:      notify.KindAppointment,
		EntityID:  appt.ID,
		Reference: appt.Reference,
		UserID:    appt.UserID,
		Status:    string(status),
	})
	return appt, nil
}

// dispatch fires a notification without blocking or failing the caller.
func (a *Allocator) dispatch(ctx context.Context, e notify.Event) {
	if a.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.notifier.Dispatch(ctx, e); err != nil {
			a.lg.Warn("notification dispatch failed",
				zap.String("entity_id", e.EntityID),
				zap.Error(err))
		}
	}()
}

// Get returns a single appointment by ID.
func (a *Allocator) Get(ctx context.Context, id string) (*Appointment, error) {
	return a.appointments.GetByID(ctx, id)
}

// newReference produces a short human-readable reference number such as
// APT-20240601-3F9A2C.
func newReference(date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return "APT-" + date.Format("20060102") + "-" + suffix
}
