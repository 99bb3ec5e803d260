// Package router wires the HTTP routes of the registration API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/open-day-registration/internal/handler"
)

// API groups the handlers and middleware the route table needs.  Any of
// the middleware fields may be nil, in which case the route is registered
// without it.
type API struct {
	Schedule     *handler.ScheduleHandler
	Registration *handler.RegistrationHandler
	Cache        echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
}

// RegisterRoutes registers the health check and the three API endpoints.
// The two reads sit behind the response cache; the registration write is
// rate limited instead, since caching a write would be meaningless and
// the write path is the only one worth abuse protection.
func RegisterRoutes(e *echo.Echo, api API) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/api")

	var readMW []echo.MiddlewareFunc
	if api.Cache != nil {
		readMW = append(readMW, api.Cache)
	}
	g.GET("/schedule", api.Schedule.GetSchedule, readMW...)
	g.GET("/register", api.Registration.GetTakenSeats, readMW...)

	var writeMW []echo.MiddlewareFunc
	if api.RateLimit != nil {
		writeMW = append(writeMW, api.RateLimit)
	}
	g.POST("/register", api.Registration.Register, writeMW...)
}
