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
	"stayd/internal/pkg/errs"
)

func reserveForTest(t *testing.T, e *testEngine, userID, roomTypeID uuid.UUID, start, end time.Time, rooms int) uuid.UUID {
	t.Helper()
	out, err := e.reservations.Reserve(context.Background(), ReserveInput{
		UserID: userID, RoomTypeID: roomTypeID,
		StartDate: start, EndDate: end, RoomsBooked: rooms,
	})
	require.NoError(t, err)
	return out.BookingID
}

func TestCancelReleasesInventory(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 8), 10)

	ownerID := uuid.New()
	bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 8), 3)
	require.Equal(t, 7, e.store.availableOn(rt.ID(), day(2026, 9, 5)))

	out, err := e.lifecycle.Cancel(context.Background(), CancelInput{
		BookingID: bookingID, ActorID: ownerID,
	})
	require.NoError(t, err)
	assert.False(t, out.AlreadyCancelled)

	for _, d := range []time.Time{day(2026, 9, 5), day(2026, 9, 6), day(2026, 9, 7)} {
		assert.Equal(t, 10, e.store.availableOn(rt.ID(), d))
	}
}

func TestCancelTwiceReleasesOnce(t *testing.T) {
	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 10)

	ownerID := uuid.New()
	bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 2)

	first, err := e.lifecycle.Cancel(context.Background(), CancelInput{BookingID: bookingID, ActorID: ownerID})
	require.NoError(t, err)
	assert.False(t, first.AlreadyCancelled)

	second, err := e.lifecycle.Cancel(context.Background(), CancelInput{BookingID: bookingID, ActorID: ownerID})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCancelled)

	assert.Equal(t, 10, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
}

func TestCancelConcurrentRacersReleaseOnce(t *testing.T) {
	const racers = 8

	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, nil)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 10)

	ownerID := uuid.New()
	bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 4)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		cancelled int
		noops     int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.lifecycle.Cancel(context.Background(), CancelInput{BookingID: bookingID, ActorID: ownerID})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if out.AlreadyCancelled {
				noops++
			} else {
				cancelled++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cancelled)
	assert.Equal(t, racers-1, noops)
	assert.Equal(t, 10, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
}

func TestCancelAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(ownerID uuid.UUID) uuid.UUID
		isAdmin bool
		at      time.Time
		wantErr error
	}{
		{
			name:  "owner before cutoff",
			actor: func(owner uuid.UUID) uuid.UUID { return owner },
			at:    testNow,
		},
		{
			name:    "owner inside cutoff",
			actor:   func(owner uuid.UUID) uuid.UUID { return owner },
			at:      day(2026, 9, 5).Add(-2 * time.Hour),
			wantErr: ErrCancellationForbidden,
		},
		{
			name:    "stranger",
			actor:   func(uuid.UUID) uuid.UUID { return uuid.New() },
			at:      testNow,
			wantErr: ErrCancellationForbidden,
		},
		{
			name:    "admin inside cutoff",
			actor:   func(uuid.UUID) uuid.UUID { return uuid.New() },
			isAdmin: true,
			at:      day(2026, 9, 5).Add(-2 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(testNow)
			rt := seedRoomType(t, e, 10, 12000, nil)
			e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 10)

			ownerID := uuid.New()
			bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 6), 1)

			e.clk.Set(tt.at)
			_, err := e.lifecycle.Cancel(context.Background(), CancelInput{
				BookingID: bookingID,
				ActorID:   tt.actor(ownerID),
				IsAdmin:   tt.isAdmin,
			})

			if tt.wantErr != nil {
				assert.True(t, errs.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, 9, e.store.availableOn(rt.ID(), day(2026, 9, 5)), "inventory must not move")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 10, e.store.availableOn(rt.ID(), day(2026, 9, 5)))
			}
		})
	}
}

func TestCancelMissingBooking(t *testing.T) {
	e := newTestEngine(testNow)

	_, err := e.lifecycle.Cancel(context.Background(), CancelInput{
		BookingID: uuid.New(), ActorID: uuid.New(),
	})
	assert.True(t, errs.Is(err, ErrBookingNotFound), "got %v", err)
}

func TestConfirm(t *testing.T) {
	deposit := int64(5000)

	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, &deposit)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	ownerID := uuid.New()
	bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 1)

	// A stranger cannot confirm someone else's booking.
	err := e.lifecycle.Confirm(context.Background(), ConfirmInput{BookingID: bookingID, ActorID: uuid.New()})
	assert.True(t, errs.Is(err, ErrForbidden), "got %v", err)

	require.NoError(t, e.lifecycle.Confirm(context.Background(), ConfirmInput{BookingID: bookingID, ActorID: ownerID}))

	e.store.mu.Lock()
	b := e.store.bookings[bookingID]
	e.store.mu.Unlock()
	assert.Equal(t, booking.StatusConfirmed, b.Status())
	assert.True(t, b.IsDepositPaid())

	// Confirming again is a no-op.
	assert.NoError(t, e.lifecycle.Confirm(context.Background(), ConfirmInput{BookingID: bookingID, ActorID: ownerID}))
}

func TestConfirmCancelledBooking(t *testing.T) {
	deposit := int64(5000)

	e := newTestEngine(testNow)
	rt := seedRoomType(t, e, 10, 12000, &deposit)
	e.store.openDays(rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 10)

	ownerID := uuid.New()
	bookingID := reserveForTest(t, e, ownerID, rt.ID(), day(2026, 9, 5), day(2026, 9, 7), 1)

	_, err := e.lifecycle.Cancel(context.Background(), CancelInput{BookingID: bookingID, ActorID: ownerID})
	require.NoError(t, err)

	err = e.lifecycle.Confirm(context.Background(), ConfirmInput{BookingID: bookingID, ActorID: ownerID})
	assert.True(t, errs.Is(err, ErrAlreadyCancelled), "got %v", err)
}
