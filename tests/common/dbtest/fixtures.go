//go:build unit || e2e

package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateRoomType inserts a room type and returns its ID. A nil deposit means
// bookings confirm immediately.
func CreateRoomType(t *testing.T, pool *pgxpool.Pool, name string, capacity int, priceCents int64, depositCents *int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO room_types (id, name, capacity, price_per_night_cents, deposit_cents) VALUES ($1, $2, $3, $4, $5)",
		id, name, capacity, priceCents, depositCents)
	require.NoError(t, err, "Failed to insert room type")
	return id
}

// OpenInventory lists nights consecutive days starting at from, each with the
// given number of available rooms.
func OpenInventory(t *testing.T, pool *pgxpool.Pool, roomTypeID uuid.UUID, from time.Time, nights, rooms int) {
	t.Helper()

	ctx := context.Background()
	for i := range nights {
		_, err := pool.Exec(ctx,
			"INSERT INTO inventory_days (room_type_id, day, available_rooms) VALUES ($1, $2, $3)",
			roomTypeID, from.AddDate(0, 0, i), rooms)
		require.NoError(t, err, "Failed to insert inventory day")
	}
}

// AvailableRooms reads the remaining stock for one night.
func AvailableRooms(t *testing.T, pool *pgxpool.Pool, roomTypeID uuid.UUID, day time.Time) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		"SELECT available_rooms FROM inventory_days WHERE room_type_id = $1 AND day = $2",
		roomTypeID, day).Scan(&n)
	require.NoError(t, err, "Failed to read inventory day")
	return n
}

// ResetDB wipes all mutable state between subtests.
func ResetDB(pool *pgxpool.Pool) error {
	_, err := pool.Exec(context.Background(),
		"TRUNCATE idempotency_keys, bookings, inventory_days, room_types CASCADE")
	return err
}
