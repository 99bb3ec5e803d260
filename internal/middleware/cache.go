// Package middleware provides the Redis-backed response cache and the
// token-bucket rate limiter used in front of the registration API.
package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/open-day-registration/internal/config"
)

// captureWriter tees the response body into a buffer while forwarding it
// to the client, so a successful response can be cached after the handler
// runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// cacheKey derives a stable key from route and query.  The query is part
// of the key because the availability endpoint is parameterised by
// (date, time).
func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodeEntry packs [4 bytes status][json body]; every cached response is
// JSON, so no headers need to be stored.
func encodeEntry(status int, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	copy(out[4:], body)
	return out
}

func decodeEntry(bs []byte) (status int, body []byte, ok bool) {
	if len(bs) < 4 {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint32(bs[0:4])), bs[4:], true
}

// NewResponseCache caches successful GET responses of the schedule and
// availability endpoints.  Schedule entries live longer than availability
// entries so new bookings grey out seats quickly.  With caching disabled
// or no Redis client the middleware is a pass-through.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttlFor := func(c echo.Context) time.Duration {
		if strings.HasSuffix(c.Path(), "/schedule") {
			return cfg.ScheduleTTL
		}
		return cfg.AvailabilityTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)

			ctx, cancel := context.WithTimeout(c.Request().Context(), 300*time.Millisecond)
			cached, err := rdb.Get(ctx, key).Bytes()
			cancel()
			if err == nil {
				if status, body, ok := decodeEntry(cached); ok {
					return c.JSONBlob(status, body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status >= 200 && cw.status < 300 && cw.buf.Len() > 0 {
				entry := encodeEntry(cw.status, cw.buf.Bytes())
				ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
				_ = rdb.Set(ctx, key, entry, ttlFor(c)).Err()
				cancel()
			}
			return nil
		}
	}
}
