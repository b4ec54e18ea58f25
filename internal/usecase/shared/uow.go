package shared

import (
	"context"
	"time"

	"stayd/internal/domain/booking"
	"stayd/internal/domain/room"

	"github.com/google/uuid"
)

// UnitOfWork wraps one reservation-engine mutation in an atomic unit. The
// postgres implementation retries serialization failures, deadlocks and
// lock timeouts a bounded number of times before giving up.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	RoomTypes() RoomTypeRepository
	Inventory() InventoryRepository
	Bookings() BookingRepository
	Idempotency() IdempotencyRepository
}

type RoomTypeRepository interface {
	Find(ctx context.Context, id uuid.UUID) (*room.RoomType, error)
}

// InventoryRepository is the inventory ledger: the only path through which
// per-date availability counters may be mutated. Implementations must
// process the stay's dates in ascending calendar order.
type InventoryRepository interface {
	// Reserve decrements every date in the stay by rooms, or none of them.
	Reserve(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error
	// Release is the mirror of Reserve, capped at the room type's capacity.
	Release(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error
	// AdjustDay sets one date's counter directly. Out-of-band admin
	// correction, bounds-checked against capacity.
	AdjustDay(ctx context.Context, roomTypeID uuid.UUID, day time.Time, availableRooms int) error
	// OpenDays creates full-capacity rows for dates that are not yet
	// sellable.
	OpenDays(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	// FindForUpdate reads the booking under a row lock so concurrent
	// lifecycle transitions serialize.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	Save(ctx context.Context, b *booking.Booking) error
}

// IdempotencyRepository is the deduplication index. The uniqueness
// constraint on fingerprint is the single point of agreement between
// concurrent duplicate requests; no in-process locking substitutes for it.
type IdempotencyRepository interface {
	// TryInsert registers the fingerprint as processing. The return value
	// reports whether this caller won the insert race.
	TryInsert(ctx context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error)
	Get(ctx context.Context, fingerprint string) (*IdempotencyRecord, error)
	MarkCompleted(ctx context.Context, fingerprint string, bookingID uuid.UUID) error
	// Delete is the compensating action for a failed winner: it frees the
	// fingerprint so retries with the same parameters can succeed.
	Delete(ctx context.Context, fingerprint string) error
	// ClaimExpired atomically takes over a fingerprint whose expiry has
	// passed. Reports whether the claim succeeded.
	ClaimExpired(ctx context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SnapshotCache fronts availability reads. Implementations must degrade to
// misses on failure, never error.
type SnapshotCache interface {
	Get(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time, dest any) bool
	Set(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time, value any)
	Invalidate(ctx context.Context, roomTypeID uuid.UUID)
}
