package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citywheel/scooterfleet/booking"
	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/customer"
	"github.com/citywheel/scooterfleet/internal/middleware"
	"github.com/citywheel/scooterfleet/protocol"
)

// scooterUnreachable reports whether err is a protocol failure (no reply, or
// a reply that did not answer the command) rather than a storage failure.
func scooterUnreachable(err error) bool {
	var mismatch *protocol.UnexpectedStatusError
	return errors.Is(err, protocol.ErrNoResponse) || errors.As(err, &mismatch)
}

type bookingResponse struct {
	ID          uuid.UUID      `json:"id"`
	ScooterID   int64          `json:"scooterId"`
	Status      booking.Status `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	ActivatedAt *time.Time     `json:"activatedAt,omitempty"`
}

func toBookingResponse(b booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:        b.ID,
		ScooterID: b.ScooterID,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		ExpiresAt: b.ExpiresAt,
	}
	if b.ActivatedAt.Valid {
		t := b.ActivatedAt.Time
		resp.ActivatedAt = &t
	}
	return resp
}

type createBookingRequest struct {
	ScooterID int64 `json:"scooterId" binding:"required"`
}

// currentCustomer resolves the authenticated subject to a customer row,
// creating it on first sight.
func (a *API) currentCustomer(c *gin.Context) (*customer.Customer, bool) {
	auth0ID, ok := middleware.GetAuth0ID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return nil, false
	}
	cust, err := a.cr.GetOrCreate(c, auth0ID)
	if err != nil {
		middleware.GetLogger(c).Error("failed to resolve customer", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return cust, true
}

func (a *API) getBookingsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var (
		bookings []booking.Booking
		err      error
	)
	if middleware.IsAdmin(c) {
		bookings, err = a.bk.GetAll(c)
	} else {
		bookings, err = a.bk.GetByUserID(c, cust.ID)
	}
	if err != nil {
		logger.Error("failed to get bookings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, toBookingResponse(b))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) createBookingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	b, err := a.coord.Create(c, req.ScooterID, cust.ID)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrScooterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "SCOOTER_NOT_FOUND", "message": "Scooter not found"})
		case errors.Is(err, coordinator.ErrScooterUnavailable):
			c.JSON(http.StatusConflict, gin.H{"code": "SCOOTER_UNAVAILABLE", "message": "Scooter is already booked"})
		default:
			logger.Error("failed to create booking", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (a *API) activateBookingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid booking id"})
		return
	}

	b, err := a.coord.Activate(c, bookingID, cust.ID)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "BOOKING_NOT_FOUND", "message": "Booking not found"})
		case errors.Is(err, coordinator.ErrBookingExpired):
			c.JSON(http.StatusConflict, gin.H{"code": "BOOKING_EXPIRED", "message": "Booking has expired"})
		case errors.Is(err, coordinator.ErrScooterNeedsService):
			c.JSON(http.StatusConflict, gin.H{"code": "SCOOTER_NEEDS_SERVICE", "message": "Scooter is awaiting service"})
		case scooterUnreachable(err):
			logger.Error("scooter did not confirm start", "booking_id", bookingID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"code": "SCOOTER_UNREACHABLE", "message": err.Error()})
		default:
			logger.Error("failed to activate booking", "booking_id", bookingID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (a *API) closeBookingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	cust, ok := a.currentCustomer(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid booking id"})
		return
	}

	receipt, err := a.coord.Close(c, bookingID, cust.ID)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "BOOKING_NOT_FOUND", "message": "Booking not found"})
		case scooterUnreachable(err):
			logger.Error("scooter did not confirm stop", "booking_id", bookingID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"code": "SCOOTER_UNREACHABLE", "message": err.Error()})
		default:
			logger.Error("failed to close booking", "booking_id", bookingID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	if receipt == nil {
		// Cancelled while pending, no ride happened.
		c.JSON(http.StatusOK, gin.H{"ok": "booking cancelled"})
		return
	}

	go a.invoiceRide(logger, cust, *receipt)

	c.JSON(http.StatusOK, receipt)
}
