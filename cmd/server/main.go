package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/open-day-registration/internal/config"
	"github.com/iliyamo/open-day-registration/internal/handler"
	"github.com/iliyamo/open-day-registration/internal/middleware"
	"github.com/iliyamo/open-day-registration/internal/queue"
	"github.com/iliyamo/open-day-registration/internal/registration"
	"github.com/iliyamo/open-day-registration/internal/router"
	"github.com/iliyamo/open-day-registration/internal/schedule"
	"github.com/iliyamo/open-day-registration/internal/sheets"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	account, err := sheets.LoadServiceAccountFromEnv()
	if err != nil {
		log.Fatalf("load sheets credentials: %v", err)
	}
	store := sheets.NewClient(account, cfg.SpreadsheetID, nil)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache, rate limit and seat lock disabled")
	}

	agg := schedule.NewAggregator(store, cfg.ScheduleRange)
	repo := registration.NewRepo(store, cfg.RegistrationsRange, cfg.AppendRange,
		registration.NewSeatLock(rdb, cfg.SeatLockTTL))

	e := echo.New()
	router.RegisterRoutes(e, router.API{
		Schedule:     handler.NewScheduleHandler(agg),
		Registration: handler.NewRegistrationHandler(repo),
		Cache:        middleware.NewResponseCache(config.LoadCacheConfig(), rdb),
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	// Notification log consumer; reconnects on its own and never brings
	// the server down.
	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
