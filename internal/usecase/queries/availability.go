package queries

import (
	"context"
	"time"

	"stayd/internal/domain/booking"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrInvalidAvailabilityRange = errs.New("invalid availability range")

type AvailabilityReadStore interface {
	MinAvailable(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time) (*AvailabilitySnapshot, error)
}

type AvailabilityQueries interface {
	GetAvailability(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time) (*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	store AvailabilityReadStore
	cache shared.SnapshotCache
}

func NewAvailabilityQueries(store AvailabilityReadStore, cache shared.SnapshotCache) AvailabilityQueries {
	return &availabilityQueriesImpl{store: store, cache: cache}
}

// GetAvailability reports how many rooms could still be booked across every
// night of [start, end). Snapshot read only; concurrent reservations may
// invalidate the answer immediately, which is fine for browse screens.
func (q *availabilityQueriesImpl) GetAvailability(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time) (*AvailabilityView, error) {
	stay, err := booking.NewStayRange(start, end)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidAvailabilityRange)
	}

	var cached AvailabilityView
	if q.cache.Get(ctx, roomTypeID, stay.Start(), stay.End(), &cached) {
		return &cached, nil
	}

	snap, err := q.store.MinAvailable(ctx, roomTypeID, stay.Start(), stay.End())
	if err != nil {
		return nil, err
	}

	view := &AvailabilityView{
		RoomTypeID:   roomTypeID,
		StartDate:    stay.Start(),
		EndDate:      stay.End(),
		MinAvailable: snap.MinAvailable,
	}
	// Days without inventory rows are not on sale; an incomplete range is
	// unavailable no matter the minimum.
	if snap.DaysListed < stay.Nights() {
		view.MinAvailable = 0
	}
	view.Available = view.MinAvailable > 0

	q.cache.Set(ctx, roomTypeID, stay.Start(), stay.End(), view)
	return view, nil
}
