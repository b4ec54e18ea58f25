package api

import (
	"net/http"

	reqdto "stayd/internal/handler/dto/request"
	resdto "stayd/internal/handler/dto/response"
	"stayd/internal/handler/httperr"
	"stayd/internal/handler/middleware"
	"stayd/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler is mounted behind RequireAdmin; actor identity still comes
// from the token so every override is attributable.
type AdminHandler struct {
	admin commands.AdminCommands
}

func NewAdminHandler(admin commands.AdminCommands) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// @Summary Force-cancel booking
// @Description Cancel any booking, bypassing ownership and the cancellation cutoff
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.ForceCancelRequest false "Cancellation reason"
// @Success 200 {object} resdto.CancelBookingResponse
// @Failure 404 {object} httperr.Response
// @Router /admin/bookings/{id}/cancel [post]
func (h *AdminHandler) ForceCancel(c *gin.Context) {
	actorID, id, ok := h.actorAndBookingID(c)
	if !ok {
		return
	}

	var req reqdto.ForceCancelRequest
	_ = c.ShouldBindJSON(&req)

	out, err := h.admin.ForceCancel(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromCancelOutput(out))
}

// @Summary Reschedule booking
// @Description Move a booking to new dates or room count, repricing at the current nightly rate
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.RescheduleBookingRequest true "New stay"
// @Success 200 {object} resdto.RescheduleBookingResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /admin/bookings/{id}/reschedule [post]
func (h *AdminHandler) Reschedule(c *gin.Context) {
	actorID, id, ok := h.actorAndBookingID(c)
	if !ok {
		return
	}

	var req reqdto.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}
	start, end, err := req.ParseDates()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	out, err := h.admin.Reschedule(c.Request.Context(), commands.RescheduleInput{
		BookingID:   id,
		ActorID:     actorID,
		StartDate:   start,
		EndDate:     end,
		RoomsBooked: req.RoomsBooked,
	})
	if err != nil {
		respondCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromRescheduleOutput(out))
}

// @Summary Record offline payment
// @Description Mark a deposit as settled outside the system and confirm the booking
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.RecordPaymentRequest false "Payment reference"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Router /admin/bookings/{id}/payment [post]
func (h *AdminHandler) RecordPayment(c *gin.Context) {
	actorID, id, ok := h.actorAndBookingID(c)
	if !ok {
		return
	}

	var req reqdto.RecordPaymentRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.admin.RecordOfflinePayment(c.Request.Context(), commands.RecordPaymentInput{
		BookingID: id,
		ActorID:   actorID,
		Reference: req.Reference,
	}); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Waive deposit
// @Description Drop the deposit requirement from a booking, confirming it if provisional
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Router /admin/bookings/{id}/waive-deposit [post]
func (h *AdminHandler) WaiveDeposit(c *gin.Context) {
	actorID, id, ok := h.actorAndBookingID(c)
	if !ok {
		return
	}

	if err := h.admin.WaiveDeposit(c.Request.Context(), id, actorID); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Adjust inventory
// @Description Set one date's availability counter directly, bounded by capacity
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomTypeId path string true "Room type ID"
// @Param request body reqdto.AdjustInventoryRequest true "Adjustment"
// @Success 204
// @Failure 422 {object} httperr.Response
// @Router /admin/room-types/{roomTypeId}/inventory [patch]
func (h *AdminHandler) AdjustInventory(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingIdentity, "INTERNAL", "Internal server error", nil)
		return
	}
	roomTypeID, err := uuid.Parse(c.Param("roomTypeId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid room type ID format", nil)
		return
	}

	var req reqdto.AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}
	day, err := req.ParseDay()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	if err := h.admin.AdjustInventory(c.Request.Context(), commands.AdjustInventoryInput{
		RoomTypeID:     roomTypeID,
		ActorID:        actorID,
		Day:            day,
		AvailableRooms: req.AvailableRooms,
		Reason:         req.Reason,
	}); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Open inventory
// @Description Create full-capacity availability rows for a date range
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomTypeId path string true "Room type ID"
// @Param request body reqdto.OpenInventoryRequest true "Date range"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Router /admin/room-types/{roomTypeId}/inventory/open [post]
func (h *AdminHandler) OpenInventory(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingIdentity, "INTERNAL", "Internal server error", nil)
		return
	}
	roomTypeID, err := uuid.Parse(c.Param("roomTypeId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid room type ID format", nil)
		return
	}

	var req reqdto.OpenInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}
	start, end, err := req.ParseDates()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	if err := h.admin.OpenInventory(c.Request.Context(), commands.OpenInventoryInput{
		RoomTypeID: roomTypeID,
		ActorID:    actorID,
		StartDate:  start,
		EndDate:    end,
	}); err != nil {
		respondCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) actorAndBookingID(c *gin.Context) (actorID, bookingID uuid.UUID, ok bool) {
	actorID, idOK := middleware.GetUserID(c)
	if !idOK {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingIdentity, "INTERNAL", "Internal server error", nil)
		return uuid.Nil, uuid.Nil, false
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid booking ID format", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, bookingID, true
}
