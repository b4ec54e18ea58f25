package repository

import (
	"context"

	"stayd/internal/domain/room"
	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type RoomTypeRepository struct {
	db db.DBTX
}

func NewRoomTypeRepository(dbtx db.DBTX) *RoomTypeRepository {
	return &RoomTypeRepository{db: dbtx}
}

const findRoomTypeQuery = `
SELECT id, name, capacity, price_per_night_cents, deposit_cents
FROM room_types
WHERE id = $1`

func (r *RoomTypeRepository) Find(ctx context.Context, id uuid.UUID) (*room.RoomType, error) {
	var (
		roomTypeID   pgtype.UUID
		name         string
		capacity     int
		priceCents   int64
		depositCents pgtype.Int8
	)

	row := r.db.QueryRow(ctx, findRoomTypeQuery, pgconv.UUIDToPgtype(id))
	if err := row.Scan(&roomTypeID, &name, &capacity, &priceCents, &depositCents); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("room type not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find room type", err)
	}

	rt, err := room.NewRoomType(uuid.UUID(roomTypeID.Bytes), name, capacity, priceCents, pgconv.Int64PtrFromPgtype(depositCents))
	if err != nil {
		return nil, infra.WrapRepoErr("stored room type is invalid", err)
	}
	return rt, nil
}
