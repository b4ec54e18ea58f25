package room

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidCapacity = errors.New("capacity must be positive")
	ErrNegativePrice   = errors.New("nightly price cannot be negative")
	ErrEmptyName       = errors.New("room type name cannot be empty")
)

// RoomType is the unit inventory is partitioned by: every sellable room of
// the same type shares one per-date availability counter.
type RoomType struct {
	id                 uuid.UUID
	name               string
	capacity           int
	pricePerNightCents int64
	depositCents       *int64
}

func NewRoomType(id uuid.UUID, name string, capacity int, pricePerNightCents int64, depositCents *int64) (*RoomType, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if pricePerNightCents < 0 {
		return nil, ErrNegativePrice
	}
	if depositCents != nil && *depositCents < 0 {
		return nil, ErrNegativePrice
	}
	return &RoomType{
		id:                 id,
		name:               name,
		capacity:           capacity,
		pricePerNightCents: pricePerNightCents,
		depositCents:       depositCents,
	}, nil
}

func (rt *RoomType) ID() uuid.UUID             { return rt.id }
func (rt *RoomType) Name() string              { return rt.name }
func (rt *RoomType) Capacity() int             { return rt.capacity }
func (rt *RoomType) PricePerNightCents() int64 { return rt.pricePerNightCents }

// DepositCents returns the required deposit, or nil when the type sells
// without one.
func (rt *RoomType) DepositCents() *int64 { return rt.depositCents }

func (rt *RoomType) RequiresDeposit() bool {
	return rt.depositCents != nil && *rt.depositCents > 0
}
