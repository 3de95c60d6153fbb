package domain

import (
	"context"
	"errors"
	"time"

	"salonvox/internal/models"
)

// ErrNotFound is returned by stores when a key is absent or already expired.
// Callers must not be able to tell the two cases apart.
var ErrNotFound = errors.New("not found")

// SessionRepository keeps in-flight call sessions. Get validates the TTL
// before returning and refreshes it, so an idle call eventually reads as
// absent. Implementations must provide atomic semantics per key.
type SessionRepository interface {
	Get(ctx context.Context, callSID string) (*models.CallSession, error)
	Put(ctx context.Context, session *models.CallSession) error
	Clear(ctx context.Context, callSID string) error
}

// PendingRepository keeps pending confirmations keyed by token.
// Consume atomically removes and returns the entry; a second Consume of the
// same token yields ErrNotFound.
type PendingRepository interface {
	Put(ctx context.Context, token string, pending *models.PendingConfirmation) error
	Get(ctx context.Context, token string) (*models.PendingConfirmation, error)
	Consume(ctx context.Context, token string) (*models.PendingConfirmation, error)
}

// Scheduler is the external scheduling provider.
type Scheduler interface {
	ListAvailableStartTimes(ctx context.Context, handle string, from, to time.Time) ([]time.Time, error)
	CreateBooking(ctx context.Context, handle string, start time.Time, name, email string) (*models.Booking, error)
}

// Notifier sends a text message. Best effort: a notifier configured without
// credentials silently does nothing.
type Notifier interface {
	SendText(ctx context.Context, to, body string) error
}

// StaffNotifier pushes an out-of-band alert to the salon staff.
type StaffNotifier interface {
	NotifyStaff(ctx context.Context, text string) error
}

// IntentClassifier resolves free text into a service when keyword matching
// was inconclusive. A timeout is reported as ServiceNone, not an error.
type IntentClassifier interface {
	ClassifyService(ctx context.Context, freeText string) (models.ServiceKind, error)
}

// BookingLog records finalized bookings for audit and export.
type BookingLog interface {
	RecordBooking(ctx context.Context, booking *models.Booking) error
	ListBookings(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
}

// EventPublisher decouples dialog outcomes from their observers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
