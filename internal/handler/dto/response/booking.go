package response

import (
	"time"

	"github.com/google/uuid"

	"stayd/internal/usecase/commands"
	"stayd/internal/usecase/queries"
)

type CreateBookingResponse struct {
	BookingID       uuid.UUID `json:"bookingId"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"totalPriceCents"`
	DepositCents    *int64    `json:"depositCents,omitempty"`
	Replayed        bool      `json:"replayed"`
}

func FromReserveOutput(out *commands.ReserveOutput) *CreateBookingResponse {
	return &CreateBookingResponse{
		BookingID:       out.BookingID,
		Status:          string(out.Status),
		TotalPriceCents: out.TotalPriceCents,
		DepositCents:    out.DepositCents,
		Replayed:        out.Replayed,
	}
}

type BookingResponse struct {
	ID              uuid.UUID `json:"id"`
	RoomTypeID      uuid.UUID `json:"roomTypeId"`
	RoomTypeName    string    `json:"roomTypeName"`
	UserID          uuid.UUID `json:"userId"`
	StartDate       string    `json:"startDate"`
	EndDate         string    `json:"endDate"`
	RoomsBooked     int       `json:"roomsBooked"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"totalPriceCents"`
	DepositCents    *int64    `json:"depositCents,omitempty"`
	IsDepositPaid   bool      `json:"isDepositPaid"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:              v.ID,
		RoomTypeID:      v.RoomTypeID,
		RoomTypeName:    v.RoomTypeName,
		UserID:          v.UserID,
		StartDate:       v.StartDate.Format("2006-01-02"),
		EndDate:         v.EndDate.Format("2006-01-02"),
		RoomsBooked:     v.RoomsBooked,
		Status:          v.Status,
		TotalPriceCents: v.TotalPriceCents,
		DepositCents:    v.DepositCents,
		IsDepositPaid:   v.IsDepositPaid,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

type CancelBookingResponse struct {
	BookingID        uuid.UUID `json:"bookingId"`
	AlreadyCancelled bool      `json:"alreadyCancelled"`
}

func FromCancelOutput(out *commands.CancelOutput) *CancelBookingResponse {
	return &CancelBookingResponse{
		BookingID:        out.BookingID,
		AlreadyCancelled: out.AlreadyCancelled,
	}
}

type RescheduleBookingResponse struct {
	BookingID       uuid.UUID `json:"bookingId"`
	TotalPriceCents int64     `json:"totalPriceCents"`
}

func FromRescheduleOutput(out *commands.RescheduleOutput) *RescheduleBookingResponse {
	return &RescheduleBookingResponse{
		BookingID:       out.BookingID,
		TotalPriceCents: out.TotalPriceCents,
	}
}

type RoomTypeResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Capacity           int       `json:"capacity"`
	PricePerNightCents int64     `json:"pricePerNightCents"`
	DepositCents       *int64    `json:"depositCents,omitempty"`
}

func FromRoomTypeView(v *queries.RoomTypeView) *RoomTypeResponse {
	return &RoomTypeResponse{
		ID:                 v.ID,
		Name:               v.Name,
		Capacity:           v.Capacity,
		PricePerNightCents: v.PricePerNightCents,
		DepositCents:       v.DepositCents,
	}
}

type AvailabilityResponse struct {
	RoomTypeID   uuid.UUID `json:"roomTypeId"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate"`
	MinAvailable int       `json:"minAvailable"`
	Available    bool      `json:"available"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	return &AvailabilityResponse{
		RoomTypeID:   v.RoomTypeID,
		StartDate:    v.StartDate.Format("2006-01-02"),
		EndDate:      v.EndDate.Format("2006-01-02"),
		MinAvailable: v.MinAvailable,
		Available:    v.Available,
	}
}
