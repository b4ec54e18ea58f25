package request

import (
	"time"

	"github.com/google/uuid"

	"stayd/internal/pkg/errs"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errs.New("dates must use YYYY-MM-DD format")

type CreateBookingRequest struct {
	RoomTypeID  uuid.UUID `json:"room_type_id" binding:"required"`
	StartDate   string    `json:"start_date" binding:"required"`
	EndDate     string    `json:"end_date" binding:"required"`
	RoomsBooked int       `json:"rooms_booked" binding:"required,min=1"`
}

func (r CreateBookingRequest) ParseDates() (start, end time.Time, err error) {
	return parseDatePair(r.StartDate, r.EndDate)
}

type RescheduleBookingRequest struct {
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	RoomsBooked int    `json:"rooms_booked" binding:"required,min=1"`
}

func (r RescheduleBookingRequest) ParseDates() (start, end time.Time, err error) {
	return parseDatePair(r.StartDate, r.EndDate)
}

type ForceCancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RecordPaymentRequest struct {
	Reference string `json:"reference,omitempty"`
}

type AdjustInventoryRequest struct {
	Day            string `json:"day" binding:"required"`
	AvailableRooms int    `json:"available_rooms" binding:"min=0"`
	Reason         string `json:"reason,omitempty"`
}

func (r AdjustInventoryRequest) ParseDay() (time.Time, error) {
	day, err := time.Parse(dateLayout, r.Day)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

type OpenInventoryRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (r OpenInventoryRequest) ParseDates() (start, end time.Time, err error) {
	return parseDatePair(r.StartDate, r.EndDate)
}

func parseDatePair(startStr, endStr string) (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	end, err = time.Parse(dateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	return start, end, nil
}
