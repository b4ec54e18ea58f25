package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayd/internal/domain/booking"
	"stayd/internal/infra"
	"stayd/internal/infra/audit"
	"stayd/internal/pkg/clock"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/shared"
)

type RescheduleInput struct {
	BookingID   uuid.UUID
	ActorID     uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	RoomsBooked int
}

type RescheduleOutput struct {
	BookingID       uuid.UUID
	TotalPriceCents int64
}

type RecordPaymentInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	Reference string
}

type AdjustInventoryInput struct {
	RoomTypeID     uuid.UUID
	ActorID        uuid.UUID
	Day            time.Time
	AvailableRooms int
	Reason         string
}

type OpenInventoryInput struct {
	RoomTypeID uuid.UUID
	ActorID    uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
}

// AdminCommands are the override surface: operations that bypass the guest
// rules (cancellation cutoffs, deposit requirements) or touch inventory
// directly. Every one of them emits an audit event naming the acting admin.
type AdminCommands interface {
	ForceCancel(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*CancelOutput, error)
	Reschedule(ctx context.Context, in RescheduleInput) (*RescheduleOutput, error)
	RecordOfflinePayment(ctx context.Context, in RecordPaymentInput) error
	WaiveDeposit(ctx context.Context, bookingID, actorID uuid.UUID) error
	AdjustInventory(ctx context.Context, in AdjustInventoryInput) error
	OpenInventory(ctx context.Context, in OpenInventoryInput) error
}

type adminCommandsImpl struct {
	uow      shared.UnitOfWork
	bookings BookingCommands
	cache    shared.SnapshotCache
	sink     audit.Sink
	clk      clock.Clock
	log      *slog.Logger
}

func NewAdminCommands(
	unit shared.UnitOfWork,
	bookings BookingCommands,
	cache shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	log *slog.Logger,
) AdminCommands {
	return &adminCommandsImpl{
		uow:      unit,
		bookings: bookings,
		cache:    cache,
		sink:     sink,
		clk:      clk,
		log:      log,
	}
}

// ForceCancel reuses the guest cancel path with admin privileges, which
// bypass both ownership and the pre-check-in cutoff.
func (a *adminCommandsImpl) ForceCancel(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*CancelOutput, error) {
	out, err := a.bookings.Cancel(ctx, CancelInput{
		BookingID: bookingID,
		ActorID:   actorID,
		IsAdmin:   true,
	})
	if err != nil {
		return nil, err
	}
	if !out.AlreadyCancelled && reason != "" {
		a.log.Info("booking force-cancelled",
			slog.String("booking_id", bookingID.String()),
			slog.String("actor_id", actorID.String()),
			slog.String("reason", reason),
		)
	}
	return out, nil
}

// Reschedule moves a booking to a new stay, releasing the old room-nights
// and reserving the new ones in the same transaction so the booking never
// holds zero or double inventory at any commit point. The price is recomputed
// from the room type's current nightly rate.
func (a *adminCommandsImpl) Reschedule(ctx context.Context, in RescheduleInput) (*RescheduleOutput, error) {
	if in.RoomsBooked < 1 {
		return nil, ErrInvalidRoomCount
	}
	newStay, err := booking.NewStayRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidDateRange)
	}
	if err := newStay.ValidateNotPast(a.clk.Now()); err != nil {
		return nil, errs.Mark(err, ErrInvalidDateRange)
	}

	var rescheduled *booking.Booking

	txErr := a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		roomType, err := tx.RoomTypes().Find(ctx, b.RoomTypeID())
		if err != nil {
			return err
		}
		if err := tx.Inventory().Release(ctx, b.RoomTypeID(), b.Stay(), b.RoomsBooked()); err != nil {
			return err
		}
		if err := tx.Inventory().Reserve(ctx, b.RoomTypeID(), newStay, in.RoomsBooked); err != nil {
			return err
		}
		if err := b.Reschedule(newStay, in.RoomsBooked, roomType.PricePerNightCents(), a.clk.Now()); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		rescheduled = b
		return nil
	})
	if txErr != nil {
		switch {
		case infra.IsKind(txErr, infra.KindInsufficientStock):
			return nil, errs.Mark(txErr, ErrInsufficientInventory)
		case infra.IsKind(txErr, infra.KindNotFound):
			return nil, errs.Mark(txErr, ErrBookingNotFound)
		case errs.Is(txErr, booking.ErrAlreadyCancelled):
			return nil, errs.Mark(txErr, ErrAlreadyCancelled)
		default:
			return nil, errs.Mark(txErr, ErrStorageFailure)
		}
	}

	a.cache.Invalidate(ctx, rescheduled.RoomTypeID())
	a.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindBookingRescheduled,
		BookingID:  rescheduled.ID(),
		RoomTypeID: rescheduled.RoomTypeID(),
		ActorID:    in.ActorID,
		Detail:     newStay.String(),
		OccurredAt: a.clk.Now(),
	})

	return &RescheduleOutput{
		BookingID:       rescheduled.ID(),
		TotalPriceCents: rescheduled.TotalPrice().Cents(),
	}, nil
}

// RecordOfflinePayment marks a deposit as settled outside the system (bank
// transfer, front desk) and confirms the booking.
func (a *adminCommandsImpl) RecordOfflinePayment(ctx context.Context, in RecordPaymentInput) error {
	var paid *booking.Booking

	txErr := a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if err := b.RecordDepositPayment(a.clk.Now()); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		paid = b
		return nil
	})
	if txErr != nil {
		return a.mapAdminErr(txErr)
	}

	a.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindPaymentRecorded,
		BookingID:  paid.ID(),
		RoomTypeID: paid.RoomTypeID(),
		ActorID:    in.ActorID,
		Detail:     in.Reference,
		OccurredAt: a.clk.Now(),
	})
	return nil
}

// WaiveDeposit drops the deposit requirement from a booking, confirming it
// if it was waiting on payment.
func (a *adminCommandsImpl) WaiveDeposit(ctx context.Context, bookingID, actorID uuid.UUID) error {
	var waived *booking.Booking

	txErr := a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := b.WaiveDeposit(a.clk.Now()); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		waived = b
		return nil
	})
	if txErr != nil {
		return a.mapAdminErr(txErr)
	}

	a.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindDepositWaived,
		BookingID:  waived.ID(),
		RoomTypeID: waived.RoomTypeID(),
		ActorID:    actorID,
		OccurredAt: a.clk.Now(),
	})
	return nil
}

// AdjustInventory sets one date's availability counter directly, bounded to
// [0, capacity]. Used for out-of-band corrections like maintenance blocks.
func (a *adminCommandsImpl) AdjustInventory(ctx context.Context, in AdjustInventoryInput) error {
	if in.AvailableRooms < 0 {
		return ErrInventoryOutOfBounds
	}

	txErr := a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Inventory().AdjustDay(ctx, in.RoomTypeID, in.Day, in.AvailableRooms)
	})
	if txErr != nil {
		switch {
		case infra.IsKind(txErr, infra.KindCapacityExceeded):
			return errs.Mark(txErr, ErrInventoryOutOfBounds)
		case infra.IsKind(txErr, infra.KindNotFound):
			return errs.Mark(txErr, ErrRoomTypeNotFound)
		default:
			return errs.Mark(txErr, ErrStorageFailure)
		}
	}

	a.cache.Invalidate(ctx, in.RoomTypeID)
	a.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindInventoryAdjusted,
		RoomTypeID: in.RoomTypeID,
		ActorID:    in.ActorID,
		Detail:     fmt.Sprintf("%s=%d %s", in.Day.Format("2006-01-02"), in.AvailableRooms, in.Reason),
		OccurredAt: a.clk.Now(),
	})
	return nil
}

// OpenInventory creates full-capacity rows for a date range that has not
// been sellable yet. Dates that already have rows are left untouched.
func (a *adminCommandsImpl) OpenInventory(ctx context.Context, in OpenInventoryInput) error {
	stay, err := booking.NewStayRange(in.StartDate, in.EndDate)
	if err != nil {
		return errs.Mark(err, ErrInvalidDateRange)
	}

	txErr := a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if _, err := tx.RoomTypes().Find(ctx, in.RoomTypeID); err != nil {
			return err
		}
		return tx.Inventory().OpenDays(ctx, in.RoomTypeID, stay)
	})
	if txErr != nil {
		if infra.IsKind(txErr, infra.KindNotFound) {
			return errs.Mark(txErr, ErrRoomTypeNotFound)
		}
		return errs.Mark(txErr, ErrStorageFailure)
	}

	a.cache.Invalidate(ctx, in.RoomTypeID)
	a.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindInventoryAdjusted,
		RoomTypeID: in.RoomTypeID,
		ActorID:    in.ActorID,
		Detail:     "opened " + stay.String(),
		OccurredAt: a.clk.Now(),
	})
	return nil
}

func (a *adminCommandsImpl) mapAdminErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, ErrBookingNotFound)
	case errs.Is(err, booking.ErrAlreadyCancelled):
		return errs.Mark(err, ErrAlreadyCancelled)
	default:
		return errs.Mark(err, ErrStorageFailure)
	}
}
