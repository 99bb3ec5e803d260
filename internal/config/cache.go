package config

import "time"

// CacheConfig controls the JSON response cache in front of the two read
// endpoints.  Schedule responses change rarely, so they get a longer TTL
// than availability responses, which must surface fresh bookings quickly.
type CacheConfig struct {
	Enabled         bool
	Prefix          string
	ScheduleTTL     time.Duration
	AvailabilityTTL time.Duration
}

// LoadCacheConfig reads the cache settings with defaults tuned for a
// low-QPS public form.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:         envBool("CACHE_ENABLED", true),
		Prefix:          getenv("CACHE_PREFIX", "cache"),
		ScheduleTTL:     envDur("CACHE_SCHEDULE_TTL", 30*time.Second),
		AvailabilityTTL: envDur("CACHE_AVAILABILITY_TTL", 3*time.Second),
	}
}
