package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayd/internal/domain/booking"
	"stayd/internal/infra"
	"stayd/internal/infra/audit"
	"stayd/internal/infra/uow"
	"stayd/internal/pkg/clock"
	"stayd/internal/pkg/config"
	"stayd/internal/pkg/errs"
	"stayd/internal/pkg/metrics"
	"stayd/internal/usecase/queries"
	"stayd/internal/usecase/shared"
)

type ReserveInput struct {
	UserID      uuid.UUID
	RoomTypeID  uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	RoomsBooked int
	// IdempotencyKey is optional; when empty the parameter digest is used.
	IdempotencyKey string
}

type ReserveOutput struct {
	BookingID       uuid.UUID
	Status          booking.Status
	TotalPriceCents int64
	DepositCents    *int64
	// Replayed reports that this response was served from a previously
	// completed request with the same fingerprint, not a new booking.
	Replayed bool
}

type ReservationCommands interface {
	Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error)
}

type reservationCommandsImpl struct {
	uow   shared.UnitOfWork
	idem  shared.IdempotencyRepository
	reads queries.BookingReadStore
	cache shared.SnapshotCache
	sink  audit.Sink
	clk   clock.Clock
	cfg   config.ReservationConfig
	log   *slog.Logger
}

func NewReservationCommands(
	unit shared.UnitOfWork,
	idem shared.IdempotencyRepository,
	reads queries.BookingReadStore,
	cache shared.SnapshotCache,
	sink audit.Sink,
	clk clock.Clock,
	cfg config.ReservationConfig,
	log *slog.Logger,
) ReservationCommands {
	return &reservationCommandsImpl{
		uow:   unit,
		idem:  idem,
		reads: reads,
		cache: cache,
		sink:  sink,
		clk:   clk,
		cfg:   cfg,
		log:   log,
	}
}

// Reserve is the single entry point for creating bookings. The idempotency
// insert decides a winner among concurrent duplicates before any inventory
// is touched; the winner runs the reservation transaction and everyone else
// replays the winner's result.
func (r *reservationCommandsImpl) Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error) {
	start := time.Now()
	defer func() { metrics.ReserveLatency.Observe(time.Since(start).Seconds()) }()

	if in.RoomsBooked < 1 {
		metrics.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, ErrInvalidRoomCount
	}
	stay, err := booking.NewStayRange(in.StartDate, in.EndDate)
	if err != nil {
		metrics.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, errs.Mark(err, ErrInvalidDateRange)
	}
	if err := stay.ValidateNotPast(r.clk.Now()); err != nil {
		metrics.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, errs.Mark(err, ErrInvalidDateRange)
	}

	fingerprint := fingerprintFor(in)
	hash := requestHash(in)

	// Losing the insert race and then finding no record means the winner
	// failed and compensated; the whole attempt restarts from the insert.
	for attempt := 0; attempt <= r.cfg.MaxConflictRetries; attempt++ {
		out, restart, err := r.attempt(ctx, in, stay, fingerprint, hash)
		if restart {
			continue
		}
		return out, err
	}
	metrics.BookingsFailedTotal.WithLabelValues("contention").Inc()
	return nil, ErrConflictRetryExhausted
}

func (r *reservationCommandsImpl) attempt(
	ctx context.Context,
	in ReserveInput,
	stay booking.StayRange,
	fingerprint, hash string,
) (out *ReserveOutput, restart bool, err error) {
	expiresAt := r.clk.Now().Add(r.cfg.IdempotencyTTL)

	won, err := r.idem.TryInsert(ctx, fingerprint, in.UserID, hash, expiresAt)
	if err != nil {
		return nil, false, errs.Mark(err, ErrStorageFailure)
	}
	if won {
		out, err := r.reserveAsWinner(ctx, in, stay, fingerprint)
		return out, false, err
	}

	rec, err := r.idem.Get(ctx, fingerprint)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, true, nil
		}
		return nil, false, errs.Mark(err, ErrStorageFailure)
	}

	if rec.IsExpired(r.clk.Now()) {
		claimed, err := r.idem.ClaimExpired(ctx, fingerprint, in.UserID, hash, expiresAt)
		if err != nil {
			return nil, false, errs.Mark(err, ErrStorageFailure)
		}
		if !claimed {
			// Someone else claimed or deleted it first.
			return nil, true, nil
		}
		out, err := r.reserveAsWinner(ctx, in, stay, fingerprint)
		return out, false, err
	}

	if rec.RequestHash != hash {
		metrics.BookingsFailedTotal.WithLabelValues("key_reuse").Inc()
		return nil, false, ErrIdempotencyKeyReused
	}

	out, err = r.replay(ctx, rec, fingerprint)
	if err != nil && errs.Is(err, errNeedRestart) {
		return nil, true, nil
	}
	return out, false, err
}

// errNeedRestart is internal to the replay poll: the winner's record
// vanished mid-wait, so the caller should retake the insert race.
var errNeedRestart = errs.New("idempotency record vanished during replay wait")

// replay waits for the winning request's booking to become visible, then
// serves it. The wait is bounded; a request that outlasts it is rejected
// retryably rather than left hanging.
func (r *reservationCommandsImpl) replay(ctx context.Context, rec *shared.IdempotencyRecord, fingerprint string) (*ReserveOutput, error) {
	for attempt := 0; attempt < r.cfg.ReplayWaitAttempts; attempt++ {
		if rec.IsCompleted() && rec.ResultBookingID != nil {
			return r.replayResult(ctx, *rec.ResultBookingID)
		}

		select {
		case <-ctx.Done():
			return nil, errs.Wrap(ctx.Err(), "replay wait cancelled")
		case <-time.After(r.cfg.ReplayWaitBase * time.Duration(attempt+1)):
		}

		var err error
		rec, err = r.idem.Get(ctx, fingerprint)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errNeedRestart
			}
			return nil, errs.Mark(err, ErrStorageFailure)
		}
	}
	metrics.BookingsFailedTotal.WithLabelValues("replay_timeout").Inc()
	return nil, ErrConflictRetryExhausted
}

func (r *reservationCommandsImpl) replayResult(ctx context.Context, bookingID uuid.UUID) (*ReserveOutput, error) {
	view, err := r.reads.FindByID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// Completed record pointing at a missing booking means manual
			// data surgery; surface it as a storage failure, not a retry.
			return nil, errs.Mark(errs.New("completed fingerprint references missing booking"), ErrStorageFailure)
		}
		return nil, errs.Mark(err, ErrStorageFailure)
	}
	metrics.BookingsReplayedTotal.Inc()
	return &ReserveOutput{
		BookingID:       view.ID,
		Status:          booking.Status(view.Status),
		TotalPriceCents: view.TotalPriceCents,
		DepositCents:    view.DepositCents,
		Replayed:        true,
	}, nil
}

// reserveAsWinner runs the reservation transaction. Inventory is
// decremented before the booking row exists so the availability invariant
// holds at every commit point; a failure anywhere rolls everything back and
// frees the fingerprint for a clean retry.
func (r *reservationCommandsImpl) reserveAsWinner(ctx context.Context, in ReserveInput, stay booking.StayRange, fingerprint string) (*ReserveOutput, error) {
	var created *booking.Booking

	txErr := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		roomType, err := tx.RoomTypes().Find(ctx, in.RoomTypeID)
		if err != nil {
			// Marked here so a later NOT_FOUND from the idempotency update
			// cannot masquerade as a missing room type.
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrRoomTypeNotFound)
			}
			return err
		}
		if err := tx.Inventory().Reserve(ctx, in.RoomTypeID, stay, in.RoomsBooked); err != nil {
			return err
		}
		b, err := booking.NewBooking(roomType, in.UserID, stay, in.RoomsBooked, r.clk.Now())
		if err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if err := tx.Idempotency().MarkCompleted(ctx, fingerprint, b.ID()); err != nil {
			return err
		}
		created = b
		return nil
	})
	if txErr != nil {
		r.compensate(ctx, fingerprint)
		return nil, r.mapReserveErr(txErr)
	}

	r.cache.Invalidate(ctx, in.RoomTypeID)
	r.sink.Publish(ctx, audit.Event{
		Kind:       audit.KindBookingCreated,
		BookingID:  created.ID(),
		RoomTypeID: in.RoomTypeID,
		ActorID:    in.UserID,
		Detail:     stay.String(),
		OccurredAt: r.clk.Now(),
	})
	metrics.BookingsCreatedTotal.WithLabelValues(string(created.Status())).Inc()

	return &ReserveOutput{
		BookingID:       created.ID(),
		Status:          created.Status(),
		TotalPriceCents: created.TotalPrice().Cents(),
		DepositCents:    created.DepositCents(),
		Replayed:        false,
	}, nil
}

// compensate frees the fingerprint after a failed winner transaction.
// If the delete itself fails the record lingers until its TTL claim; that
// is logged loudly because duplicate requests will stall until then.
func (r *reservationCommandsImpl) compensate(ctx context.Context, fingerprint string) {
	if err := r.idem.Delete(context.WithoutCancel(ctx), fingerprint); err != nil {
		r.log.Error("failed to release idempotency fingerprint after aborted reservation",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
	}
}

func (r *reservationCommandsImpl) mapReserveErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindInsufficientStock):
		metrics.BookingsFailedTotal.WithLabelValues("insufficient_inventory").Inc()
		return errs.Mark(err, ErrInsufficientInventory)
	case errs.Is(err, ErrRoomTypeNotFound):
		return err
	case errs.Is(err, uow.ErrMaxRetriesExceeded) || uow.IsLockTimeout(err):
		metrics.BookingsFailedTotal.WithLabelValues("contention").Inc()
		return errs.Mark(err, ErrConflictRetryExhausted)
	case errs.Is(err, booking.ErrStayInPast) || errs.Is(err, booking.ErrInvalidStayRange):
		return errs.Mark(err, ErrInvalidDateRange)
	default:
		metrics.BookingsFailedTotal.WithLabelValues("storage").Inc()
		return errs.Mark(err, ErrStorageFailure)
	}
}
