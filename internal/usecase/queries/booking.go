package queries

import (
	"context"

	"github.com/google/uuid"
)

type BookingReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit int32) ([]*BookingView, error)
}

type RoomTypeReadStore interface {
	List(ctx context.Context) ([]*RoomTypeView, error)
}

type BookingQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*BookingView, error)
	ListRoomTypes(ctx context.Context) ([]*RoomTypeView, error)
}

type bookingQueriesImpl struct {
	bookings  BookingReadStore
	roomTypes RoomTypeReadStore
}

func NewBookingQueries(bookings BookingReadStore, roomTypes RoomTypeReadStore) BookingQueries {
	return &bookingQueriesImpl{bookings: bookings, roomTypes: roomTypes}
}

func (q *bookingQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	return q.bookings.FindByID(ctx, id)
}

func (q *bookingQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*BookingView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return q.bookings.FindByUserID(ctx, userID, int32(limit))
}

func (q *bookingQueriesImpl) ListRoomTypes(ctx context.Context) ([]*RoomTypeView, error) {
	return q.roomTypes.List(ctx)
}
