package api

import (
	"net/http"
	"time"

	resdto "stayd/internal/handler/dto/response"
	"stayd/internal/handler/httperr"
	"stayd/internal/pkg/errs"
	"stayd/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AvailabilityHandler struct {
	availability queries.AvailabilityQueries
	bookings     queries.BookingQueries
}

func NewAvailabilityHandler(availability queries.AvailabilityQueries, bookings queries.BookingQueries) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, bookings: bookings}
}

// @Summary Check availability
// @Description Minimum available rooms across the requested stay for one room type
// @Tags availability
// @Produce json
// @Param roomTypeId path string true "Room type ID"
// @Param start query string true "Check-in date (YYYY-MM-DD)"
// @Param end query string true "Check-out date (YYYY-MM-DD)"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Router /room-types/{roomTypeId}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	roomTypeID, err := uuid.Parse(c.Param("roomTypeId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid room type ID format", nil)
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "start must be YYYY-MM-DD", nil)
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "end must be YYYY-MM-DD", nil)
		return
	}

	view, err := h.availability.GetAvailability(c.Request.Context(), roomTypeID, start, end)
	if err != nil {
		if errs.Is(err, queries.ErrInvalidAvailabilityRange) {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_DATE_RANGE", "Start date must be before end date", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL", "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}

// @Summary List room types
// @Tags availability
// @Produce json
// @Success 200 {array} resdto.RoomTypeResponse
// @Router /room-types [get]
func (h *AvailabilityHandler) ListRoomTypes(c *gin.Context) {
	views, err := h.bookings.ListRoomTypes(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL", "Internal server error", nil)
		return
	}

	response := make([]*resdto.RoomTypeResponse, len(views))
	for i, v := range views {
		response[i] = resdto.FromRoomTypeView(v)
	}
	c.JSON(http.StatusOK, response)
}
