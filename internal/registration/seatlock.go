package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeatLock serializes concurrent registration writes for the same seat of
// the same session using a short-lived Redis key.  The TTL only needs to
// cover the duration of one check-then-append; if the process dies mid
// write the lock expires on its own.
type SeatLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeatLock returns a SeatLock, or nil when no Redis client is
// available so callers can degrade to the unguarded path.
func NewSeatLock(rdb *redis.Client, ttl time.Duration) *SeatLock {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SeatLock{rdb: rdb, ttl: ttl}
}

// Acquire attempts to take the lock for a seat.  It returns false when
// another request already holds it.
func (l *SeatLock) Acquire(ctx context.Context, date, start string, seat int) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(date, start, seat), "1", l.ttl).Result()
}

// Release frees the lock.  Errors are ignored; the TTL bounds a leaked
// lock either way.
func (l *SeatLock) Release(ctx context.Context, date, start string, seat int) {
	_ = l.rdb.Del(ctx, l.key(date, start, seat)).Err()
}

func (l *SeatLock) key(date, start string, seat int) string {
	return fmt.Sprintf("seatlock:%s:%s:%d", date, start, seat)
}
