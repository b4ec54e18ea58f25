package booking

import (
	"errors"
	"time"

	"stayd/internal/domain/room"

	"github.com/google/uuid"
)

var (
	ErrInvalidRoomCount   = errors.New("rooms booked must be at least 1")
	ErrAlreadyCancelled   = errors.New("booking is already cancelled")
	ErrAlreadyConfirmed   = errors.New("booking is already confirmed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDepositOutstanding = errors.New("deposit has not been paid")
)

type Booking struct {
	id            uuid.UUID
	userID        uuid.UUID
	roomTypeID    uuid.UUID
	stay          StayRange
	roomsBooked   int
	status        Status
	totalPrice    Money
	depositCents  *int64
	isDepositPaid bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewBooking creates a booking against the given room type. The total price
// is fixed here (nights x nightly price x rooms) and stored; it is never
// recomputed from a possibly-changed room type price. Bookings for types
// that require a deposit start provisional; all others start confirmed.
func NewBooking(
	roomType *room.RoomType,
	userID uuid.UUID,
	stay StayRange,
	roomsBooked int,
	now time.Time,
) (*Booking, error) {
	if roomsBooked < 1 {
		return nil, ErrInvalidRoomCount
	}
	if err := stay.ValidateNotPast(now); err != nil {
		return nil, err
	}

	total := NewMoney(roomType.PricePerNightCents()).Mul(int64(stay.Nights())).Mul(int64(roomsBooked))

	status := StatusConfirmed
	var deposit *int64
	if roomType.RequiresDeposit() {
		status = StatusProvisional
		d := *roomType.DepositCents()
		deposit = &d
	}

	return &Booking{
		id:            uuid.New(),
		userID:        userID,
		roomTypeID:    roomType.ID(),
		stay:          stay,
		roomsBooked:   roomsBooked,
		status:        status,
		totalPrice:    total,
		depositCents:  deposit,
		isDepositPaid: false,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func Reconstruct(
	id, userID, roomTypeID uuid.UUID,
	stay StayRange,
	roomsBooked int,
	status Status,
	totalPrice Money,
	depositCents *int64,
	isDepositPaid bool,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		userID:        userID,
		roomTypeID:    roomTypeID,
		stay:          stay,
		roomsBooked:   roomsBooked,
		status:        status,
		totalPrice:    totalPrice,
		depositCents:  depositCents,
		isDepositPaid: isDepositPaid,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Confirm records payment and moves the booking to confirmed. Confirming an
// already-confirmed booking is reported distinctly so callers can treat it
// as a no-op.
func (b *Booking) Confirm(now time.Time) error {
	switch b.status {
	case StatusConfirmed:
		return ErrAlreadyConfirmed
	case StatusCancelled:
		return ErrAlreadyCancelled
	}
	b.status = StatusConfirmed
	b.isDepositPaid = b.depositCents != nil
	b.updatedAt = now
	return nil
}

// Cancel moves the booking to its terminal state. The caller is responsible
// for releasing the booking's room-nights back to inventory in the same
// unit of work before this transition commits.
func (b *Booking) Cancel(now time.Time) error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	b.status = StatusCancelled
	b.updatedAt = now
	return nil
}

// RecordDepositPayment marks the deposit as paid and confirms the booking.
func (b *Booking) RecordDepositPayment(now time.Time) error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	b.isDepositPaid = true
	if b.status == StatusProvisional {
		b.status = StatusConfirmed
	}
	b.updatedAt = now
	return nil
}

// WaiveDeposit drops the deposit requirement and confirms a provisional
// booking. Admin-only path.
func (b *Booking) WaiveDeposit(now time.Time) error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	b.depositCents = nil
	b.isDepositPaid = false
	if b.status == StatusProvisional {
		b.status = StatusConfirmed
	}
	b.updatedAt = now
	return nil
}

// Reschedule replaces the stay and room count, repricing from the supplied
// nightly rate. Inventory movement is the caller's responsibility.
func (b *Booking) Reschedule(stay StayRange, roomsBooked int, pricePerNightCents int64, now time.Time) error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if roomsBooked < 1 {
		return ErrInvalidRoomCount
	}
	b.stay = stay
	b.roomsBooked = roomsBooked
	b.totalPrice = NewMoney(pricePerNightCents).Mul(int64(stay.Nights())).Mul(int64(roomsBooked))
	b.updatedAt = now
	return nil
}

func (b *Booking) IsCancelled() bool { return b.status == StatusCancelled }

// CancellableBy reports whether the actor may cancel at the given time.
// Owners are bound by the pre-check-in cutoff; admins are not.
func (b *Booking) CancellableBy(actorID uuid.UUID, isAdmin bool, now time.Time, cutoff time.Duration) bool {
	if isAdmin {
		return true
	}
	if actorID != b.userID {
		return false
	}
	return now.Add(cutoff).Before(b.stay.Start()) || now.Add(cutoff).Equal(b.stay.Start())
}

func (b *Booking) ID() uuid.UUID         { return b.id }
func (b *Booking) UserID() uuid.UUID     { return b.userID }
func (b *Booking) RoomTypeID() uuid.UUID { return b.roomTypeID }
func (b *Booking) Stay() StayRange       { return b.stay }
func (b *Booking) RoomsBooked() int      { return b.roomsBooked }
func (b *Booking) Status() Status        { return b.status }
func (b *Booking) TotalPrice() Money     { return b.totalPrice }
func (b *Booking) DepositCents() *int64  { return b.depositCents }
func (b *Booking) IsDepositPaid() bool   { return b.isDepositPaid }
func (b *Booking) CreatedAt() time.Time  { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time  { return b.updatedAt }
