package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type BookingView struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	RoomTypeID      uuid.UUID `json:"room_type_id"`
	RoomTypeName    string    `json:"room_type_name"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	RoomsBooked     int       `json:"rooms_booked"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"total_price_cents"`
	DepositCents    *int64    `json:"deposit_cents,omitempty"`
	IsDepositPaid   bool      `json:"is_deposit_paid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RoomTypeView struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Capacity           int       `json:"capacity"`
	PricePerNightCents int64     `json:"price_per_night_cents"`
	DepositCents       *int64    `json:"deposit_cents,omitempty"`
}

// AvailabilitySnapshot is the raw read-store answer for a date range: the
// lowest counter across its nights and how many nights actually have
// inventory rows.
type AvailabilitySnapshot struct {
	MinAvailable int `json:"min_available"`
	DaysListed   int `json:"days_listed"`
}

type AvailabilityView struct {
	RoomTypeID   uuid.UUID `json:"room_type_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MinAvailable int       `json:"min_available"`
	Available    bool      `json:"available"`
}
