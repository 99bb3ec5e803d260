// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime configuration of the registration service.
// Required values are enforced by must(); the service refuses to start
// without them since every request needs the spreadsheet.
type Config struct {
	Env                string // application environment (e.g. "dev", "prod")
	Port               string // HTTP port to listen on
	SpreadsheetID      string // spreadsheet backing schedules and registrations
	ScheduleRange      string // A1 range of the schedule rows
	RegistrationsRange string // A1 range of the registration rows
	AppendRange        string // A1 range appends target
	SeatLockTTL        time.Duration
}

// Load reads the configuration from the environment.  Missing required
// variables cause a fatal log and exit.
func Load() Config {
	return Config{
		Env:                must("APP_ENV"),
		Port:               must("APP_PORT"),
		SpreadsheetID:      must("SPREADSHEET_ID"),
		ScheduleRange:      getenv("SCHEDULE_RANGE", "Schedules!A2:D"),
		RegistrationsRange: getenv("REGISTRATIONS_RANGE", "Registrations!A2:E"),
		AppendRange:        getenv("REGISTRATIONS_APPEND_RANGE", "Registrations!A:E"),
		SeatLockTTL:        envDur("SEAT_LOCK_TTL", 10*time.Second),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv returns the variable's value or a default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
