package api

import (
	"net/http"

	"stayd/internal/handler/httperr"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

var (
	errMissingIdentity = errs.New("authenticated user missing from context")
	errForeignBooking  = errs.New("booking belongs to another user")
)

// respondCommandError translates usecase sentinels into HTTP responses.
// Anything unrecognized is a 500; the original error travels with the gin
// error stack for the logging middleware.
func respondCommandError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, commands.ErrInvalidDateRange):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_DATE_RANGE", "Start date must be before end date and not in the past", nil)
	case errs.Is(err, commands.ErrInvalidRoomCount):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_ROOM_COUNT", "Rooms booked must be at least 1", nil)
	case errs.Is(err, commands.ErrRoomTypeNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "ROOM_TYPE_NOT_FOUND", "Room type not found", nil)
	case errs.Is(err, commands.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "BOOKING_NOT_FOUND", "Booking not found", nil)
	case errs.Is(err, commands.ErrInsufficientInventory):
		httperr.AbortWithError(c, http.StatusConflict, err, "INSUFFICIENT_INVENTORY", "Not enough rooms available for the requested stay", nil)
	case errs.Is(err, commands.ErrIdempotencyKeyReused):
		httperr.AbortWithError(c, http.StatusConflict, err, "IDEMPOTENCY_KEY_REUSED", "Idempotency key was already used with different parameters", nil)
	case errs.Is(err, commands.ErrConflictRetryExhausted):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "CONFLICT_RETRY_EXHAUSTED", "The system is busy, please retry", nil)
	case errs.Is(err, commands.ErrAlreadyCancelled):
		httperr.AbortWithError(c, http.StatusConflict, err, "ALREADY_CANCELLED", "Booking is already cancelled", nil)
	case errs.Is(err, commands.ErrCancellationForbidden), errs.Is(err, commands.ErrForbidden):
		httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "You may not perform this action on this booking", nil)
	case errs.Is(err, commands.ErrInventoryOutOfBounds):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "INVENTORY_OUT_OF_BOUNDS", "Available rooms must stay between zero and capacity", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL", "Internal server error", nil)
	}
}
