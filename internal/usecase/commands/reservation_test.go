//go:build unit

package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayd/internal/domain/booking"
	"stayd/internal/domain/room"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func seedRoomType(t *testing.T, e *testEngine, capacity int, priceCents int64, depositCents *int64) *room.RoomType {
	t.Helper()
	rt, err := room.NewRoomType(uuid.New(), "Standard Double", capacity, priceCents, depositCents)
	require.NoError(t, err)
	e.store.addRoomType(rt)
	return rt
}

func TestReserve(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		seed       func(e *testEngine) uuid.UUID
		input      func(roomTypeID uuid.UUID) ReserveInput
		wantErr    error
		wantStatus booking.Status
		wantPrice  int64
	}{
		{
			name: "confirmed without deposit",
			seed: func(e *testEngine) uuid.UUID {
				rt := seedRoomType(t, e, 10, 12000, nil)
				e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 8), 10)
				return rt.ID()
			},
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 8), RoomsBooked: 2}
			},
			wantStatus: booking.StatusConfirmed,
			wantPrice:  12000 * 3 * 2,
		},
		{
			name: "provisional when deposit required",
			seed: func(e *testEngine) uuid.UUID {
				deposit := int64(5000)
				rt := seedRoomType(t, e, 10, 12000, &deposit)
				e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)
				return rt.ID()
			},
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1}
			},
			wantStatus: booking.StatusProvisional,
			wantPrice:  12000 * 2,
		},
		{
			name: "insufficient inventory",
			seed: func(e *testEngine) uuid.UUID {
				rt := seedRoomType(t, e, 10, 12000, nil)
				e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 1)
				return rt.ID()
			},
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 6), RoomsBooked: 2}
			},
			wantErr: ErrInsufficientInventory,
		},
		{
			name: "unopened dates count as sold out",
			seed: func(e *testEngine) uuid.UUID {
				rt := seedRoomType(t, e, 10, 12000, nil)
				return rt.ID()
			},
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 6), RoomsBooked: 1}
			},
			wantErr: ErrInsufficientInventory,
		},
		{
			name: "room type not found",
			seed: func(e *testEngine) uuid.UUID { return uuid.New() },
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 6), RoomsBooked: 1}
			},
			wantErr: ErrRoomTypeNotFound,
		},
		{
			name: "start after end",
			seed: func(e *testEngine) uuid.UUID { return uuid.New() },
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 8), EndDate: day(2026, 9, 5), RoomsBooked: 1}
			},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "stay in the past",
			seed: func(e *testEngine) uuid.UUID { return uuid.New() },
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 8, 20), EndDate: day(2026, 8, 22), RoomsBooked: 1}
			},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "zero rooms",
			seed: func(e *testEngine) uuid.UUID { return uuid.New() },
			input: func(id uuid.UUID) ReserveInput {
				return ReserveInput{UserID: userID, RoomTypeID: id, StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 6), RoomsBooked: 0}
			},
			wantErr: ErrInvalidRoomCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(testNow)
			roomTypeID := tt.seed(e)

			out, err := e.reservations.Reserve(context.Background(), tt.input(roomTypeID))
			if tt.wantErr != nil {
				assert.True(t, errs.Is(err, tt.wantErr), "got %v", err)
				assert.Zero(t, e.store.bookingCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantPrice, out.TotalPriceCents)
			assert.False(t, out.Replayed)
			assert.Equal(t, 1, e.store.bookingCount())
		})
	}
}

func TestReserveDecrementsEveryNight(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 8), 10)

	_, err := e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 8), RoomsBooked: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
	assert.Equal(t, 7, e.store.availableOn(rt.ID(), day(2026, 9, 6)))
	assert.Equal(t, 7, e.store.availableOn(rt.ID(), day(2026, 9, 7)))
}

// A stay whose later night is sold out must leave the earlier nights'
// counters untouched.
func TestReserveMultiNightAtomicity(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 5)
	e.store.openDays(rt.ID(), day(2026, 9, 6), day(2026, 9, 7), 0)

	_, err := e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
	})
	assert.True(t, errs.Is(err, ErrInsufficientInventory), "got %v", err)

	assert.Equal(t, 5, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
	assert.Equal(t, 0, e.store.availableOn(rt.ID(), day(2026, 9, 6)))
	assert.Zero(t, e.store.bookingCount())
}

func TestReserveNeverOversellsUnderContention(t *testing.T) {
	const (
		capacity = 10
		racers   = 20
	)

	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, capacity, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), capacity)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		soldOut   int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.reservations.Reserve(context.Background(), ReserveInput{
				UserID: uuid.New(), RoomTypeID: rt.ID(),
				StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errs.Is(err, ErrInsufficientInventory):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, racers-capacity, soldOut)
	assert.Equal(t, 0, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
	assert.Equal(t, 0, e.store.availableOn(rt.ID(), day(2026, 9, 6)))
	assert.Equal(t, capacity, e.store.bookingCount())
}

func TestReserveDuplicatesShareOneBooking(t *testing.T) {
	const racers = 5

	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 2,
		IdempotencyKey: "retry-storm-1",
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		replayed int
		ids      = make(map[uuid.UUID]struct{})
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.reservations.Reserve(context.Background(), input)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids[out.BookingID] = struct{}{}
			if out.Replayed {
				replayed++
			} else {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, replayed)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, e.store.bookingCount())
	// Inventory moved exactly once.
	assert.Equal(t, 8, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
}

func TestReserveSequentialReplay(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "client-key-42",
	}

	first, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, first.TotalPriceCents, second.TotalPriceCents)
	assert.Equal(t, 9, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
}

// Requests without a client key are deduplicated by their parameter digest.
func TestReserveDerivedFingerprintReplay(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
	}

	first, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)

	second, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.BookingID, second.BookingID)
}

func TestReserveKeyReusedWithDifferentParams(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 10), 10)

	userID := uuid.New()
	_, err := e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: userID, RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "client-key-7",
	})
	require.NoError(t, err)

	_, err = e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: userID, RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 8), EndDate: day(2026, 9, 9), RoomsBooked: 1,
		IdempotencyKey: "client-key-7",
	})
	assert.True(t, errs.Is(err, ErrIdempotencyKeyReused), "got %v", err)
	assert.Equal(t, 1, e.store.bookingCount())
}

// A winner whose transaction fails must free the fingerprint so the same
// request can succeed once the fault clears.
func TestReserveFailedWinnerFreesFingerprint(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "flaky-outage",
	}

	e.store.failCreate = true
	_, err := e.reservations.Reserve(context.Background(), input)
	require.Error(t, err)
	assert.Zero(t, e.store.idemCount(), "fingerprint must be compensated away")
	assert.Equal(t, 10, e.store.availableOn(rt.ID(), day(2026, 9, 5)), "inventory must roll back")

	e.store.failCreate = false
	out, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, 1, e.store.bookingCount())
}

// A fingerprint that vanishes mid-transaction is a storage fault, not a
// missing room type; the caller must see a retryable failure and the
// inventory hold must roll back.
func TestReserveVanishedFingerprintIsStorageFailure(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	e.store.dropIdemOnMark = true
	_, err := e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "vanishing-key",
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, ErrStorageFailure), "got %v", err)
	assert.False(t, errs.Is(err, ErrRoomTypeNotFound), "must not read as a missing room type")
	assert.Equal(t, 10, e.store.availableOn(rt.ID(), day(2026, 9, 5)), "inventory must roll back")
	assert.Zero(t, e.store.bookingCount())
}

func TestReserveExpiredFingerprintReclaimed(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "long-lived-key",
	}

	first, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)

	// Past the TTL the key no longer replays; it books again.
	e.clk.Advance(2 * time.Hour)
	second, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.BookingID, second.BookingID)
	assert.Equal(t, 2, e.store.bookingCount())
}

func TestReserveReplayReportsCompletedRecord(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	input := ReserveInput{
		UserID: uuid.New(), RoomTypeID: rt.ID(),
		StartDate: day(2026, 9, 5), EndDate: day(2026, 9, 7), RoomsBooked: 1,
		IdempotencyKey: "inspect-record",
	}

	out, err := e.reservations.Reserve(context.Background(), input)
	require.NoError(t, err)

	e.store.mu.Lock()
	rec, ok := e.store.idem["inspect-record"]
	e.store.mu.Unlock()

	require.True(t, ok)
	assert.Equal(t, shared.IdempotencyStatusCompleted, rec.Status)
	require.NotNil(t, rec.ResultBookingID)
	assert.Equal(t, out.BookingID, *rec.ResultBookingID)
}
