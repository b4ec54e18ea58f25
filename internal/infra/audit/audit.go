package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the immutable record emitted for every state-changing operation.
type Event struct {
	Kind       string     `json:"kind"`
	BookingID  uuid.UUID  `json:"booking_id"`
	RoomTypeID uuid.UUID  `json:"room_type_id,omitempty"`
	ActorID    uuid.UUID  `json:"actor_id"`
	Detail     string     `json:"detail,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

const (
	KindBookingCreated     = "booking.created"
	KindBookingConfirmed   = "booking.confirmed"
	KindBookingCancelled   = "booking.cancelled"
	KindBookingRescheduled = "booking.rescheduled"
	KindDepositWaived      = "booking.deposit_waived"
	KindPaymentRecorded    = "booking.payment_recorded"
	KindInventoryAdjusted  = "inventory.adjusted"
)

// Sink receives audit events. Publishing is fire-and-forget: delivery
// failures are logged, never surfaced to the caller.
type Sink interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

// NopSink drops all events. Used when no broker is configured.
type NopSink struct{}

func NewNopSink() *NopSink { return &NopSink{} }

func (s *NopSink) Publish(_ context.Context, _ Event) {}

func (s *NopSink) Close() error { return nil }
