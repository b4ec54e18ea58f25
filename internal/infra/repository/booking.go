package repository

import (
	"context"

	domain "stayd/internal/domain/booking"
	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(dbtx db.DBTX) *BookingRepository {
	return &BookingRepository{db: dbtx}
}

const createBookingQuery = `
INSERT INTO bookings (
    id, user_id, room_type_id, start_date, end_date, rooms_booked,
    status, total_price_cents, deposit_cents, deposit_paid, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	_, err := r.db.Exec(ctx, createBookingQuery,
		pgconv.UUIDToPgtype(b.ID()),
		pgconv.UUIDToPgtype(b.UserID()),
		pgconv.UUIDToPgtype(b.RoomTypeID()),
		pgconv.DateToPgtype(b.Stay().Start()),
		pgconv.DateToPgtype(b.Stay().End()),
		b.RoomsBooked(),
		b.Status().String(),
		b.TotalPrice().Cents(),
		pgconv.Int64PtrToPgtype(b.DepositCents()),
		b.IsDepositPaid(),
		pgconv.TimeToPgtype(b.CreatedAt()),
		pgconv.TimeToPgtype(b.UpdatedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

const findBookingForUpdateQuery = `
SELECT id, user_id, room_type_id, start_date, end_date, rooms_booked,
       status, total_price_cents, deposit_cents, deposit_paid, created_at, updated_at
FROM bookings
WHERE id = $1
FOR UPDATE`

// FindForUpdate locks the booking row so concurrent lifecycle transitions
// (cancel vs cancel, cancel vs confirm) serialize on it.
func (r *BookingRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.scanBooking(ctx, findBookingForUpdateQuery, id)
}

const updateBookingQuery = `
UPDATE bookings
SET start_date = $2, end_date = $3, rooms_booked = $4, status = $5,
    total_price_cents = $6, deposit_cents = $7, deposit_paid = $8, updated_at = $9
WHERE id = $1`

func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	tag, err := r.db.Exec(ctx, updateBookingQuery,
		pgconv.UUIDToPgtype(b.ID()),
		pgconv.DateToPgtype(b.Stay().Start()),
		pgconv.DateToPgtype(b.Stay().End()),
		b.RoomsBooked(),
		b.Status().String(),
		b.TotalPrice().Cents(),
		pgconv.Int64PtrToPgtype(b.DepositCents()),
		b.IsDepositPaid(),
		pgconv.TimeToPgtype(b.UpdatedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *BookingRepository) scanBooking(ctx context.Context, query string, id uuid.UUID) (*domain.Booking, error) {
	var (
		bookingID    pgtype.UUID
		userID       pgtype.UUID
		roomTypeID   pgtype.UUID
		startDate    pgtype.Date
		endDate      pgtype.Date
		roomsBooked  int
		status       string
		priceCents   int64
		depositCents pgtype.Int8
		depositPaid  bool
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	row := r.db.QueryRow(ctx, query, pgconv.UUIDToPgtype(id))
	err := row.Scan(&bookingID, &userID, &roomTypeID, &startDate, &endDate, &roomsBooked,
		&status, &priceCents, &depositCents, &depositPaid, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking", err)
	}

	stay, err := domain.NewStayRange(startDate.Time, endDate.Time)
	if err != nil {
		return nil, infra.WrapRepoErr("stored booking has invalid stay range", err)
	}

	return domain.Reconstruct(
		uuid.UUID(bookingID.Bytes),
		uuid.UUID(userID.Bytes),
		uuid.UUID(roomTypeID.Bytes),
		stay,
		roomsBooked,
		domain.Status(status),
		domain.NewMoney(priceCents),
		pgconv.Int64PtrFromPgtype(depositCents),
		depositPaid,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}
