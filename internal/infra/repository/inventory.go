package repository

import (
	"context"
	"time"

	"stayd/internal/domain/booking"
	"stayd/internal/infra"
	"stayd/internal/infra/db"
	"stayd/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// InventoryRepository is the postgres inventory ledger. Dates are always
// touched in ascending calendar order; since every writer follows the same
// order, overlapping reservations cannot form a lock cycle.
type InventoryRepository struct {
	db db.DBTX
}

func NewInventoryRepository(dbtx db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: dbtx}
}

const reserveDayQuery = `
UPDATE inventory_days
SET available_rooms = available_rooms - $3
WHERE room_type_id = $1 AND day = $2 AND available_rooms >= $3`

// Reserve decrements every date of the stay, or none. Each decrement is
// conditional on sufficient remaining availability; a miss on any date
// aborts with KindInsufficientStock and the surrounding transaction's
// rollback undoes the dates already decremented in this attempt.
func (r *InventoryRepository) Reserve(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error {
	for _, day := range stay.Days() {
		tag, err := r.db.Exec(ctx, reserveDayQuery, pgconv.UUIDToPgtype(roomTypeID), pgconv.DateToPgtype(day), rooms)
		if err != nil {
			return infra.WrapRepoErr("failed to decrement inventory", err)
		}
		if tag.RowsAffected() == 0 {
			return infra.WrapRepoErr(
				"insufficient rooms on "+day.Format(time.DateOnly), nil,
				infra.KindInsufficientStock,
			)
		}
	}
	return nil
}

const releaseDayQuery = `
UPDATE inventory_days d
SET available_rooms = LEAST(d.available_rooms + $3, rt.capacity)
FROM room_types rt
WHERE d.room_type_id = $1 AND d.day = $2 AND rt.id = d.room_type_id`

// Release increments every date of the stay, never past the room type's
// capacity. The cap guards against double-release bugs.
func (r *InventoryRepository) Release(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error {
	for _, day := range stay.Days() {
		tag, err := r.db.Exec(ctx, releaseDayQuery, pgconv.UUIDToPgtype(roomTypeID), pgconv.DateToPgtype(day), rooms)
		if err != nil {
			return infra.WrapRepoErr("failed to release inventory", err)
		}
		if tag.RowsAffected() == 0 {
			return infra.WrapRepoErr(
				"no inventory row for "+day.Format(time.DateOnly), nil,
				infra.KindNotFound,
			)
		}
	}
	return nil
}

const adjustDayQuery = `
INSERT INTO inventory_days (room_type_id, day, available_rooms)
SELECT rt.id, $2, $3
FROM room_types rt
WHERE rt.id = $1 AND $3 BETWEEN 0 AND rt.capacity
ON CONFLICT (room_type_id, day) DO UPDATE SET available_rooms = EXCLUDED.available_rooms`

// AdjustDay sets one day's counter directly. Out-of-band admin correction;
// the insert's WHERE clause bounds the value to [0, capacity].
func (r *InventoryRepository) AdjustDay(ctx context.Context, roomTypeID uuid.UUID, day time.Time, availableRooms int) error {
	tag, err := r.db.Exec(ctx, adjustDayQuery, pgconv.UUIDToPgtype(roomTypeID), pgconv.DateToPgtype(day), availableRooms)
	if err != nil {
		return infra.WrapRepoErr("failed to adjust inventory day", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("value out of capacity bounds or unknown room type", nil, infra.KindCapacityExceeded)
	}
	return nil
}

const openDayQuery = `
INSERT INTO inventory_days (room_type_id, day, available_rooms)
SELECT rt.id, $2, rt.capacity
FROM room_types rt
WHERE rt.id = $1
ON CONFLICT (room_type_id, day) DO NOTHING`

// OpenDays creates full-capacity rows for every date in the range that does
// not have one yet. Used when a room type's sales window is extended.
func (r *InventoryRepository) OpenDays(ctx context.Context, roomTypeID uuid.UUID, stay booking.StayRange) error {
	for _, day := range stay.Days() {
		if _, err := r.db.Exec(ctx, openDayQuery, pgconv.UUIDToPgtype(roomTypeID), pgconv.DateToPgtype(day)); err != nil {
			return infra.WrapRepoErr("failed to open inventory day", err)
		}
	}
	return nil
}
