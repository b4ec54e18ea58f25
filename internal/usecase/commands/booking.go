package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"stayd/internal/domain/booking"
	"stayd/internal/infra"
	"stayd/internal/infra/audit"
	"stayd/internal/pkg/clock"
	"stayd/internal/pkg/config"
	"stayd/internal/pkg/errs"
	"stayd/internal/pkg/metrics"
	"stayd/internal/usecase/shared"
)

type CancelInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	IsAdmin   bool
}

type CancelOutput struct {
	BookingID uuid.UUID
	// AlreadyCancelled reports that the booking was terminal before this
	// request; no inventory moved.
	AlreadyCancelled bool
}

type ConfirmInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
}

type BookingCommands interface {
	Cancel(ctx context.Context, in CancelInput) (*CancelOutput, error)
	Confirm(ctx context.Context, in ConfirmInput) error
}

type bookingCommandsImpl struct {
	uow   shared.UnitOfWork
	cache shared.SnapshotCache
	sink  audit.Sink
	clk   clock.Clock
	cfg   config.ReservationConfig
	log   *slog.Logger
}

func NewBookingCommands(
	unit shared.UnitOfWork,
	cache shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	cfg config.ReservationConfig,
	log *slog.Logger,
) BookingCommands {
	return &bookingCommandsImpl{uow: unit, cache: cache, sink: sink, clk: clk, cfg: cfg, log: log}
}

// Cancel releases the booking's room-nights and moves it to its terminal
// state in one transaction. The row lock taken by FindForUpdate serializes
// concurrent cancels of the same booking, so inventory is returned exactly
// once no matter how many requests race.
func (c *bookingCommandsImpl) Cancel(ctx context.Context, in CancelInput) (*CancelOutput, error) {
	var (
		cancelled   *booking.Booking
		alreadyDone bool
	)

	txErr := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			alreadyDone = true
			cancelled = b
			return nil
		}
		if !b.CancellableBy(in.ActorID, in.IsAdmin, c.clk.Now(), c.cfg.CancellationCutoff) {
			return ErrCancellationForbidden
		}
		if err := tx.Inventory().Release(ctx, b.RoomTypeID(), b.Stay(), b.RoomsBooked()); err != nil {
			return err
		}
		if err := b.Cancel(c.clk.Now()); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if txErr != nil {
		return nil, c.mapLifecycleErr(txErr)
	}

	if alreadyDone {
		return &CancelOutput{BookingID: cancelled.ID(), AlreadyCancelled: true}, nil
	}

	c.cache.Invalidate(ctx, cancelled.RoomTypeID())
	c.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindBookingCancelled,
		BookingID:  cancelled.ID(),
		RoomTypeID: cancelled.RoomTypeID(),
		ActorID:    in.ActorID,
		OccurredAt: c.clk.Now(),
	})
	metrics.BookingsCancelledTotal.Inc()

	return &CancelOutput{BookingID: cancelled.ID()}, nil
}

// Confirm moves a provisional booking to confirmed. Owners confirm their own
// bookings when the deposit clears client-side; offline payments go through
// the admin path instead. Confirming a confirmed booking is a no-op.
func (c *bookingCommandsImpl) Confirm(ctx context.Context, in ConfirmInput) error {
	var confirmed *booking.Booking

	txErr := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if b.UserID() != in.ActorID {
			return ErrForbidden
		}
		if err := b.Confirm(c.clk.Now()); err != nil {
			if errs.Is(err, booking.ErrAlreadyConfirmed) {
				return nil
			}
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		confirmed = b
		return nil
	})
	if txErr != nil {
		return c.mapLifecycleErr(txErr)
	}
	if confirmed == nil {
		return nil
	}

	c.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindBookingConfirmed,
		BookingID:  confirmed.ID(),
		RoomTypeID: confirmed.RoomTypeID(),
		ActorID:    in.ActorID,
		OccurredAt: c.clk.Now(),
	})
	return nil
}

func (c *bookingCommandsImpl) mapLifecycleErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, ErrBookingNotFound)
	case errs.Is(err, booking.ErrAlreadyCancelled):
		return errs.Mark(err, ErrAlreadyCancelled)
	case errs.Is(err, ErrCancellationForbidden), errs.Is(err, ErrForbidden):
		return err
	default:
		return errs.Mark(err, ErrStorageFailure)
	}
}
