package readstore

import (
	"context"

	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"
	"stayd/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

const findBookingViewQuery = `
SELECT b.id, b.user_id, b.room_type_id, rt.name, b.start_date, b.end_date,
       b.rooms_booked, b.status, b.total_price_cents, b.deposit_cents,
       b.deposit_paid, b.created_at, b.updated_at
FROM bookings b
JOIN room_types rt ON rt.id = b.room_type_id
WHERE b.id = $1`

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	row := r.db.QueryRow(ctx, findBookingViewQuery, pgconv.UUIDToPgtype(id))
	view, err := scanBookingView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking", err)
	}
	return view, nil
}

const listBookingViewsQuery = `
SELECT b.id, b.user_id, b.room_type_id, rt.name, b.start_date, b.end_date,
       b.rooms_booked, b.status, b.total_price_cents, b.deposit_cents,
       b.deposit_paid, b.created_at, b.updated_at
FROM bookings b
JOIN room_types rt ON rt.id = b.room_type_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC
LIMIT $2`

func (r *BookingReadStore) FindByUserID(ctx context.Context, userID uuid.UUID, limit int32) ([]*queries.BookingView, error) {
	rows, err := r.db.Query(ctx, listBookingViewsQuery, pgconv.UUIDToPgtype(userID), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	defer rows.Close()

	var views []*queries.BookingView
	for rows.Next() {
		view, err := scanBookingView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking row", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate booking rows", err)
	}
	return views, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingView(row rowScanner) (*queries.BookingView, error) {
	var (
		view         queries.BookingView
		id           pgtype.UUID
		userID       pgtype.UUID
		roomTypeID   pgtype.UUID
		startDate    pgtype.Date
		endDate      pgtype.Date
		depositCents pgtype.Int8
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(&id, &userID, &roomTypeID, &view.RoomTypeName, &startDate, &endDate,
		&view.RoomsBooked, &view.Status, &view.TotalPriceCents, &depositCents,
		&view.IsDepositPaid, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	view.ID = uuid.UUID(id.Bytes)
	view.UserID = uuid.UUID(userID.Bytes)
	view.RoomTypeID = uuid.UUID(roomTypeID.Bytes)
	view.StartDate = startDate.Time
	view.EndDate = endDate.Time
	view.DepositCents = pgconv.Int64PtrFromPgtype(depositCents)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &view, nil
}
