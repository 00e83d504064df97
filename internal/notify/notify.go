// Package notify defines the outbound notification contract. Delivery
// (email, SMS, push) is an external collaborator; the core only emits
// events after successful transitions and never fails an operation because
// a notification could not be sent.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Kind identifies the entity an event refers to.
type Kind string

const (
	KindOrder       Kind = "order"
	KindAppointment Kind = "appointment"
)

// Event describes one status change worth telling the customer about.
type Event struct {
	Kind      Kind
	EntityID  string
	Reference string
	UserID    string
	Status    string
	Note      string
}

// Dispatcher delivers events to the notification collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

// LogDispatcher is a Dispatcher that only logs events. It stands in for the
// real delivery service in development and tests.
type LogDispatcher struct {
	lg *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher writing to lg.
func NewLogDispatcher(lg *zap.Logger) *LogDispatcher {
	return &LogDispatcher{lg: lg}
}

// Dispatch logs the event and always succeeds.
func (d *LogDispatcher) Dispatch(_ context.Context, e Event) error {
	d.lg.Info("notification",
		zap.String("kind", string(e.Kind)),
		zap.String("entity_id", e.EntityID),
		zap.String("user_id", e.UserID),
		zap.String("status", e.Status),
	)
	return nil
}
