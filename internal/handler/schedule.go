package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/open-day-registration/internal/schedule"
)

// ScheduleHandler serves the aggregated event schedule.  The aggregator
// re-reads the sheet on every request, so schedule edits show up without
// a restart; the response cache middleware bounds how often that happens.
type ScheduleHandler struct {
	agg *schedule.Aggregator
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(agg *schedule.Aggregator) *ScheduleHandler {
	if agg == nil {
		panic("nil aggregator passed to NewScheduleHandler")
	}
	return &ScheduleHandler{agg: agg}
}

// GetSchedule handles GET /api/schedule.  It returns the active start
// times grouped by date plus the summed seat capacity.  The total is
// string-encoded, which is the wire format the original frontend expects.
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	result, err := h.agg.GetSchedule(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "success",
		"schedule": result.Schedule,
		"total":    strconv.Itoa(result.TotalSeats),
	})
}
