//go:build unit

package commands

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stayd/internal/domain/booking"
	"stayd/internal/domain/room"
	"stayd/internal/infra"
	"stayd/internal/infra/audit"
	"stayd/internal/infra/cache"
	"stayd/internal/pkg/clock"
	"stayd/internal/pkg/config"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/queries"
	"stayd/internal/usecase/shared"
)

// memStore is an in-memory reservation engine backing the command tests.
// Within holds the store mutex for the whole transaction, which gives the
// same serialization the database provides with row locks, and restores a
// snapshot on error to mimic rollback.
type memStore struct {
	mu             sync.Mutex
	roomTypes      map[uuid.UUID]*room.RoomType
	inventory      map[string]int
	bookings       map[uuid.UUID]*booking.Booking
	idem           map[string]shared.IdempotencyRecord
	failCreate     bool
	dropIdemOnMark bool // drops the fingerprint right before MarkCompleted
}

func newMemStore() *memStore {
	return &memStore{
		roomTypes: make(map[uuid.UUID]*room.RoomType),
		inventory: make(map[string]int),
		bookings:  make(map[uuid.UUID]*booking.Booking),
		idem:      make(map[string]shared.IdempotencyRecord),
	}
}

func invKey(roomTypeID uuid.UUID, day time.Time) string {
	return roomTypeID.String() + "|" + day.Format(time.DateOnly)
}

func (s *memStore) addRoomType(rt *room.RoomType) {
	s.roomTypes[rt.ID()] = rt
}

func (s *memStore) openDays(roomTypeID uuid.UUID, start, end time.Time, available int) {
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		s.inventory[invKey(roomTypeID, d)] = available
	}
}

func (s *memStore) availableOn(roomTypeID uuid.UUID, day time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[invKey(roomTypeID, day)]
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) idemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.idem)
}

type memSnapshot struct {
	inventory map[string]int
	bookings  map[uuid.UUID]*booking.Booking
	idem      map[string]shared.IdempotencyRecord
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		inventory: make(map[string]int, len(s.inventory)),
		bookings:  make(map[uuid.UUID]*booking.Booking, len(s.bookings)),
		idem:      make(map[string]shared.IdempotencyRecord, len(s.idem)),
	}
	for k, v := range s.inventory {
		snap.inventory[k] = v
	}
	for k, v := range s.bookings {
		snap.bookings[k] = cloneBooking(v)
	}
	for k, v := range s.idem {
		snap.idem[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.inventory = snap.inventory
	s.bookings = snap.bookings
	s.idem = snap.idem
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	return booking.Reconstruct(
		b.ID(), b.UserID(), b.RoomTypeID(),
		b.Stay(), b.RoomsBooked(), b.Status(),
		b.TotalPrice(), b.DepositCents(), b.IsDepositPaid(),
		b.CreatedAt(), b.UpdatedAt(),
	)
}

type memUoW struct {
	s *memStore
}

func (u *memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	snap := u.s.snapshot()
	if err := fn(ctx, &memTx{s: u.s}); err != nil {
		u.s.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) RoomTypes() shared.RoomTypeRepository      { return &memRoomTypes{s: t.s} }
func (t *memTx) Inventory() shared.InventoryRepository     { return &memInventory{s: t.s} }
func (t *memTx) Bookings() shared.BookingRepository        { return &memBookings{s: t.s} }
func (t *memTx) Idempotency() shared.IdempotencyRepository { return &memIdemTx{s: t.s} }

type memRoomTypes struct {
	s *memStore
}

func (r *memRoomTypes) Find(_ context.Context, id uuid.UUID) (*room.RoomType, error) {
	rt, ok := r.s.roomTypes[id]
	if !ok {
		return nil, infra.WrapRepoErr("room type not found", errs.New("no rows"), infra.KindNotFound)
	}
	return rt, nil
}

type memInventory struct {
	s *memStore
}

func (r *memInventory) Reserve(_ context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error {
	for _, day := range stay.Days() {
		key := invKey(roomTypeID, day)
		avail, ok := r.s.inventory[key]
		if !ok || avail < rooms {
			return infra.WrapRepoErr("insufficient rooms on "+day.Format(time.DateOnly), errs.New("conditional decrement matched no row"), infra.KindInsufficientStock)
		}
		r.s.inventory[key] = avail - rooms
	}
	return nil
}

func (r *memInventory) Release(_ context.Context, roomTypeID uuid.UUID, stay booking.StayRange, rooms int) error {
	rt, ok := r.s.roomTypes[roomTypeID]
	if !ok {
		return infra.WrapRepoErr("room type not found", errs.New("no rows"), infra.KindNotFound)
	}
	for _, day := range stay.Days() {
		key := invKey(roomTypeID, day)
		avail, ok := r.s.inventory[key]
		if !ok {
			return infra.WrapRepoErr("inventory row missing on "+day.Format(time.DateOnly), errs.New("no rows"), infra.KindNotFound)
		}
		released := avail + rooms
		if released > rt.Capacity() {
			released = rt.Capacity()
		}
		r.s.inventory[key] = released
	}
	return nil
}

func (r *memInventory) AdjustDay(_ context.Context, roomTypeID uuid.UUID, day time.Time, availableRooms int) error {
	rt, ok := r.s.roomTypes[roomTypeID]
	if !ok {
		return infra.WrapRepoErr("room type not found", errs.New("no rows"), infra.KindNotFound)
	}
	if availableRooms < 0 || availableRooms > rt.Capacity() {
		return infra.WrapRepoErr("adjustment outside capacity bounds", errs.New("bounds check matched no row"), infra.KindCapacityExceeded)
	}
	r.s.inventory[invKey(roomTypeID, day)] = availableRooms
	return nil
}

func (r *memInventory) OpenDays(_ context.Context, roomTypeID uuid.UUID, stay booking.StayRange) error {
	rt, ok := r.s.roomTypes[roomTypeID]
	if !ok {
		return infra.WrapRepoErr("room type not found", errs.New("no rows"), infra.KindNotFound)
	}
	for _, day := range stay.Days() {
		key := invKey(roomTypeID, day)
		if _, exists := r.s.inventory[key]; !exists {
			r.s.inventory[key] = rt.Capacity()
		}
	}
	return nil
}

type memBookings struct {
	s *memStore
}

func (r *memBookings) Create(_ context.Context, b *booking.Booking) error {
	if r.s.failCreate {
		return infra.WrapRepoErr("insert failed", errs.New("simulated outage"), infra.KindDBFailure)
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r *memBookings) FindForUpdate(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", errs.New("no rows"), infra.KindNotFound)
	}
	return cloneBooking(b), nil
}

func (r *memBookings) Save(_ context.Context, b *booking.Booking) error {
	if _, ok := r.s.bookings[b.ID()]; !ok {
		return infra.WrapRepoErr("booking not found", errs.New("no rows"), infra.KindNotFound)
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

// memIdemTx runs inside Within where the store mutex is already held.
type memIdemTx struct {
	s *memStore
}

func (r *memIdemTx) TryInsert(_ context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	return tryInsertLocked(r.s, fingerprint, userID, requestHash, expiresAt), nil
}

func (r *memIdemTx) Get(_ context.Context, fingerprint string) (*shared.IdempotencyRecord, error) {
	return getLocked(r.s, fingerprint)
}

func (r *memIdemTx) MarkCompleted(_ context.Context, fingerprint string, bookingID uuid.UUID) error {
	if r.s.dropIdemOnMark {
		delete(r.s.idem, fingerprint)
	}
	return markCompletedLocked(r.s, fingerprint, bookingID)
}

func (r *memIdemTx) Delete(_ context.Context, fingerprint string) error {
	delete(r.s.idem, fingerprint)
	return nil
}

func (r *memIdemTx) ClaimExpired(_ context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	return false, errs.New("not used inside transactions")
}

func (r *memIdemTx) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// memIdemRepo is the pool-bound counterpart used by the coordinator outside
// transactions; it takes the store mutex itself.
type memIdemRepo struct {
	s   *memStore
	clk clock.Clock
}

func (r *memIdemRepo) TryInsert(_ context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return tryInsertLocked(r.s, fingerprint, userID, requestHash, expiresAt), nil
}

func (r *memIdemRepo) Get(_ context.Context, fingerprint string) (*shared.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return getLocked(r.s, fingerprint)
}

func (r *memIdemRepo) MarkCompleted(_ context.Context, fingerprint string, bookingID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return markCompletedLocked(r.s, fingerprint, bookingID)
}

func (r *memIdemRepo) Delete(_ context.Context, fingerprint string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.idem, fingerprint)
	return nil
}

func (r *memIdemRepo) ClaimExpired(_ context.Context, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.idem[fingerprint]
	if !ok || !r.clk.Now().After(rec.ExpiresAt) {
		return false, nil
	}
	r.s.idem[fingerprint] = shared.IdempotencyRecord{
		Fingerprint: fingerprint,
		UserID:      userID,
		RequestHash: requestHash,
		Status:      shared.IdempotencyStatusProcessing,
		ExpiresAt:   expiresAt,
		CreatedAt:   r.clk.Now(),
	}
	return true, nil
}

func (r *memIdemRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, rec := range r.s.idem {
		if r.clk.Now().After(rec.ExpiresAt) {
			delete(r.s.idem, k)
			n++
		}
	}
	return n, nil
}

func tryInsertLocked(s *memStore, fingerprint string, userID uuid.UUID, requestHash string, expiresAt time.Time) bool {
	if _, exists := s.idem[fingerprint]; exists {
		return false
	}
	s.idem[fingerprint] = shared.IdempotencyRecord{
		Fingerprint: fingerprint,
		UserID:      userID,
		RequestHash: requestHash,
		Status:      shared.IdempotencyStatusProcessing,
		ExpiresAt:   expiresAt,
	}
	return true
}

func getLocked(s *memStore, fingerprint string) (*shared.IdempotencyRecord, error) {
	rec, ok := s.idem[fingerprint]
	if !ok {
		return nil, infra.WrapRepoErr("fingerprint not found", errs.New("no rows"), infra.KindNotFound)
	}
	out := rec
	return &out, nil
}

func markCompletedLocked(s *memStore, fingerprint string, bookingID uuid.UUID) error {
	rec, ok := s.idem[fingerprint]
	if !ok {
		return infra.WrapRepoErr("fingerprint vanished", errs.New("no rows"), infra.KindNotFound)
	}
	rec.Status = shared.IdempotencyStatusCompleted
	id := bookingID
	rec.ResultBookingID = &id
	s.idem[fingerprint] = rec
	return nil
}

type memBookingReads struct {
	s *memStore
}

func (r *memBookingReads) FindByID(_ context.Context, id uuid.UUID) (*queries.BookingView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", errs.New("no rows"), infra.KindNotFound)
	}
	return r.view(b), nil
}

func (r *memBookingReads) FindByUserID(_ context.Context, userID uuid.UUID, _ int32) ([]*queries.BookingView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var views []*queries.BookingView
	for _, b := range r.s.bookings {
		if b.UserID() == userID {
			views = append(views, r.view(b))
		}
	}
	return views, nil
}

func (r *memBookingReads) view(b *booking.Booking) *queries.BookingView {
	name := ""
	if rt, ok := r.s.roomTypes[b.RoomTypeID()]; ok {
		name = rt.Name()
	}
	return &queries.BookingView{
		ID:              b.ID(),
		UserID:          b.UserID(),
		RoomTypeID:      b.RoomTypeID(),
		RoomTypeName:    name,
		StartDate:       b.Stay().Start(),
		EndDate:         b.Stay().End(),
		RoomsBooked:     b.RoomsBooked(),
		Status:          string(b.Status()),
		TotalPriceCents: b.TotalPrice().Cents(),
		DepositCents:    b.DepositCents(),
		IsDepositPaid:   b.IsDepositPaid(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
}

func testReservationConfig() config.ReservationConfig {
	return config.ReservationConfig{
		LockTimeout:        time.Second,
		MaxConflictRetries: 3,
		IdempotencyTTL:     time.Hour,
		ReplayWaitAttempts: 20,
		ReplayWaitBase:     2 * time.Millisecond,
		CancellationCutoff: 24 * time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEngine struct {
	store        *memStore
	clk          *clock.MockClock
	reservations ReservationCommands
	lifecycle    BookingCommands
	admin        AdminCommands
}

func newTestEngine(now time.Time) *testEngine {
	store := newMemStore()
	clk := clock.NewMockClock(now)
	unit := &memUoW{s: store}
	idem := &memIdemRepo{s: store, clk: clk}
	reads := &memBookingReads{s: store}
	snapshots := cache.NewNop()
	sink := audit.NewNopSink()
	cfg := testReservationConfig()
	logger := discardLogger()

	lifecycle := NewBookingCommands(unit, snapshots, sink, clk, cfg, logger)

	return &testEngine{
		store:        store,
		clk:          clk,
		reservations: NewReservationCommands(unit, idem, reads, snapshots, sink, clk, cfg, logger),
		lifecycle:    lifecycle,
		admin:        NewAdminCommands(unit, lifecycle, snapshots, sink, clk, logger),
	}
}
