package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/catalog"
)

type createBookingRequest struct {
	ServiceID string   `json:"serviceId" binding:"required"`
	PetID     string   `json:"petId"`
	Modality  string   `json:"modality"`
	Date      string   `json:"date" binding:"required"`
	Time      string   `json:"time" binding:"required"`
	Comments  string   `json:"comments"`
	Address   string   `json:"address"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

// createBookingHandler godoc
// @Summary Book an appointment directly (enters as pending)
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body createBookingRequest true "booking data"
// @Success 201 {object} booking.Appointment
// @Router /appointments [post]
func createBookingHandler(repo booking.Repository, services catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload: "+err.Error())
			return
		}
		if _, err := services.GetService(c.Request.Context(), req.ServiceID); err != nil {
			fail(c, http.StatusNotFound, "service not found")
			return
		}
		a := &booking.Appointment{
			ID:        uuid.NewString(),
			UserID:    auth.UserID(c),
			ServiceID: req.ServiceID,
			Modality:  booking.NormalizeModality(req.Modality),
			Status:    booking.StatusPending,
			Date:      req.Date,
			Time:      req.Time,
			Comments:  req.Comments,
			Lat:       req.Lat,
			Lng:       req.Lng,
		}
		if req.PetID != "" {
			a.PetID = &req.PetID
		}
		if req.Address != "" {
			a.AddressRef = &req.Address
		}
		if err := repo.Create(c.Request.Context(), a); err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

// listMyBookingsHandler godoc
// @Summary List the caller's appointments
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} booking.Appointment
// @Router /appointments [get]
func listMyBookingsHandler(repo booking.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListByUser(c.Request.Context(), auth.UserID(c))
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// Service types each staff role works with.
func serviceTypesForRole(role string) []string {
	switch role {
	case auth.RoleVet:
		return []string{"veterinaria"}
	case auth.RoleGroomer:
		return []string{"peluqueria"}
	case auth.RoleTrainer:
		return []string{"adiestramiento"}
	case auth.RoleAdmin:
		return []string{"veterinaria", "peluqueria", "adiestramiento"}
	}
	return nil
}

// staffBookingsHandler godoc
// @Summary Appointments for the caller's staff role
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} booking.Appointment
// @Router /staff/appointments [get]
func staffBookingsHandler(repo booking.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		types := serviceTypesForRole(auth.Role(c))
		if types == nil {
			fail(c, http.StatusForbidden, "staff only")
			return
		}
		items, err := repo.ListByServiceTypes(c.Request.Context(), types)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

type updateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateBookingStatusHandler godoc
// @Summary Move an appointment through its status machine (staff)
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "appointment id"
// @Param body body updateBookingStatusRequest true "new status"
// @Success 200 {object} booking.Appointment
// @Failure 409 {object} map[string]string
// @Router /appointments/{id}/status [patch]
// @Router /bookings/{id}/status [patch]
func updateBookingStatusHandler(repo booking.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateBookingStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		if !booking.ValidStatus(req.Status) {
			fail(c, http.StatusBadRequest, "unknown status")
			return
		}
		a, err := repo.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			switch {
			case errors.Is(err, booking.ErrNotFound):
				fail(c, http.StatusNotFound, "appointment not found")
			case errors.Is(err, booking.ErrInvalidTransition):
				fail(c, http.StatusConflict, err.Error())
			default:
				fail(c, http.StatusInternalServerError, "internal error")
			}
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// availabilityHandler godoc
// @Summary Free slots for a service on a date
// @Tags bookings
// @Produce json
// @Param serviceId query string true "service id"
// @Param date query string true "YYYY-MM-DD"
// @Success 200 {object} map[string]any
// @Router /appointments/availability [get]
func availabilityHandler(repo booking.Repository, services catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceID := c.Query("serviceId")
		date := c.Query("date")
		if serviceID == "" || date == "" {
			fail(c, http.StatusBadRequest, "serviceId and date are required")
			return
		}
		svc, err := services.GetService(c.Request.Context(), serviceID)
		if err != nil {
			fail(c, http.StatusNotFound, "service not found")
			return
		}
		busy, err := repo.ListOnDate(c.Request.Context(), date)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		slots := booking.Availability(svc.DurationMinutes, busy)
		c.JSON(http.StatusOK, gin.H{"date": date, "slots": slots})
	}
}
