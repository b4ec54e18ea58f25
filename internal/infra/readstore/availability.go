package readstore

import (
	"context"
	"time"

	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"
	"stayd/internal/usecase/queries"

	"github.com/google/uuid"
)

// AvailabilityReadStore serves search screens. Reads are plain snapshots:
// no locks, no serialization with in-flight reservations.
type AvailabilityReadStore struct {
	db db.DBTX
}

func NewAvailabilityReadStore(dbtx db.DBTX) *AvailabilityReadStore {
	return &AvailabilityReadStore{db: dbtx}
}

const availabilityQuery = `
SELECT COALESCE(MIN(available_rooms), 0), COUNT(*)
FROM inventory_days
WHERE room_type_id = $1 AND day >= $2 AND day < $3`

// MinAvailable returns the lowest counter across [start, end) plus how many
// of the range's days actually have inventory rows; missing days mean the
// hotel is not selling them, so callers must treat an incomplete range as
// unavailable.
func (r *AvailabilityReadStore) MinAvailable(ctx context.Context, roomTypeID uuid.UUID, start, end time.Time) (*queries.AvailabilitySnapshot, error) {
	var snap queries.AvailabilitySnapshot
	row := r.db.QueryRow(ctx, availabilityQuery,
		pgconv.UUIDToPgtype(roomTypeID), pgconv.DateToPgtype(start), pgconv.DateToPgtype(end))
	if err := row.Scan(&snap.MinAvailable, &snap.DaysListed); err != nil {
		return nil, infra.WrapRepoErr("failed to read availability", err)
	}
	return &snap, nil
}
