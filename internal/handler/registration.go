package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/open-day-registration/internal/queue"
	"github.com/iliyamo/open-day-registration/internal/registration"
	"github.com/iliyamo/open-day-registration/internal/service"
)

// RegistrationHandler serves the availability query and the registration
// write.  Both operate on the Registrations sheet through the repository.
type RegistrationHandler struct {
	repo *registration.Repo
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(repo *registration.Repo) *RegistrationHandler {
	if repo == nil {
		panic("nil repository passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{repo: repo}
}

// GetTakenSeats handles GET /api/register?date=...&time=... and returns
// the distinct seats already booked for that exact session along with the
// number of registrations.  Both query parameters are required.
func (h *RegistrationHandler) GetTakenSeats(c echo.Context) error {
	date := c.QueryParam("date")
	start := c.QueryParam("time")
	if date == "" || start == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"message": "date and time query parameters are required",
		})
	}
	seats, count, err := h.repo.TakenSeats(c.Request().Context(), date, start)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
	if seats == nil {
		seats = []int{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":     "success",
		"takenSeats": seats,
		"count":      count,
	})
}

// Register handles POST /api/register.  The body carries
// {date,time,seat,email,phone}.  A seat conflict yields 409 and must not
// be read by clients as the seat having been booked; any store failure
// yields 502.  On success a registration.confirmed event is published in
// the background for the notification log.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var reg registration.Registration
	if err := c.Bind(&reg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"message": "invalid request body",
		})
	}
	if err := reg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
	if err := h.repo.Create(c.Request().Context(), reg); err != nil {
		if errors.Is(err, registration.ErrSeatTaken) {
			return c.JSON(http.StatusConflict, echo.Map{
				"status":  "error",
				"message": "seat is already taken, pick another one",
			})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}

	// Best effort: the booking is confirmed regardless of whether the
	// event reaches the broker.
	event := queue.RegistrationConfirmedEvent{
		Date:        reg.Date,
		Time:        reg.Time,
		Seat:        reg.Seat,
		Email:       reg.Email,
		Phone:       reg.Phone,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := service.PublishRegistrationConfirmed(ctx, event); err != nil {
			log.Printf("registration: publish confirmed event failed: %v", err)
		}
	}()

	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}
