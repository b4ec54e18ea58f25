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

type RoomTypeReadStore struct {
	db db.DBTX
}

func NewRoomTypeReadStore(dbtx db.DBTX) *RoomTypeReadStore {
	return &RoomTypeReadStore{db: dbtx}
}

const listRoomTypesQuery = `
SELECT id, name, capacity, price_per_night_cents, deposit_cents
FROM room_types
ORDER BY name`

func (r *RoomTypeReadStore) List(ctx context.Context) ([]*queries.RoomTypeView, error) {
	rows, err := r.db.Query(ctx, listRoomTypesQuery)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list room types", err)
	}
	defer rows.Close()

	var views []*queries.RoomTypeView
	for rows.Next() {
		var (
			view         queries.RoomTypeView
			id           pgtype.UUID
			depositCents pgtype.Int8
		)
		if err := rows.Scan(&id, &view.Name, &view.Capacity, &view.PricePerNightCents, &depositCents); err != nil {
			return nil, infra.WrapRepoErr("failed to scan room type row", err)
		}
		view.ID = uuid.UUID(id.Bytes)
		view.DepositCents = pgconv.Int64PtrFromPgtype(depositCents)
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate room type rows", err)
	}
	return views, nil
}
